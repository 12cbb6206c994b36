package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTechnicalDecisionTable(t *testing.T) {
	tests := []struct {
		strength  SignalStrength
		tolerance RiskToleranceType
		want      ActionType
	}{
		{StrengthExtreme, ToleranceConservative, ActionExitTrade},
		{StrengthExtreme, ToleranceModerate, ActionReducePositionSize},
		{StrengthExtreme, ToleranceAggressive, ActionReducePositionSize},
		{StrengthStrong, ToleranceConservative, ActionReducePositionSize},
		{StrengthStrong, ToleranceModerate, ActionAdjustStopLoss},
		{StrengthStrong, ToleranceAggressive, ActionNoAction},
		{StrengthModerate, ToleranceConservative, ActionAdjustStopLoss},
		{StrengthModerate, ToleranceModerate, ActionNoAction},
		{StrengthWeak, ToleranceConservative, ActionAdjustStopLoss},
		{StrengthWeak, ToleranceAggressive, ActionNoAction},
	}

	for _, tt := range tests {
		t.Run(string(tt.strength)+"_"+string(tt.tolerance), func(t *testing.T) {
			d := TechnicalDecision(tt.strength, tt.tolerance)
			assert.Equal(t, tt.want, d.Action)
			assert.Equal(t, riskReductions[tt.want], d.RiskReduction)
		})
	}
}

func TestVolatilityDecisionTable(t *testing.T) {
	assert.Equal(t, ActionExitTrade, VolatilityDecision(StrengthExtreme, ToleranceConservative).Action)
	assert.Equal(t, ActionHedgePosition, VolatilityDecision(StrengthExtreme, ToleranceAggressive).Action)
	assert.Equal(t, ActionHedgePosition, VolatilityDecision(StrengthStrong, ToleranceModerate).Action)
	assert.Equal(t, ActionAdjustStopLoss, VolatilityDecision(StrengthStrong, ToleranceAggressive).Action)
	assert.Equal(t, ActionNoAction, VolatilityDecision(StrengthWeak, ToleranceConservative).Action)
	assert.Equal(t, ActionNoAction, VolatilityDecision("unknown", ToleranceModerate).Action)
}

func TestDecisionTablesAreComplete(t *testing.T) {
	strengths := []SignalStrength{StrengthWeak, StrengthModerate, StrengthStrong, StrengthExtreme}
	tolerances := []RiskToleranceType{ToleranceConservative, ToleranceModerate, ToleranceAggressive}
	for _, s := range strengths {
		for _, tol := range tolerances {
			_, ok := technicalTable[decisionKey{s, tol}]
			assert.True(t, ok, "technical %s/%s", s, tol)
			_, ok = volatilityTable[decisionKey{s, tol}]
			assert.True(t, ok, "volatility %s/%s", s, tol)
		}
	}
}

func extremeVolatilitySignal() RiskSignal {
	return RiskSignal{
		ID:         "sig-vol",
		Timestamp:  baseTime,
		Source:     SourceVolatility,
		Condition:  ConditionVolatile,
		Strength:   StrengthExtreme,
		Direction:  DirectionBearish,
		Confidence: 0.9,
	}
}

func TestDetermineActionsExtremeVolatilityAggressive(t *testing.T) {
	trades := []Trade{
		activeTrade("call-1", OptionCall, 2, 2.5, 4),
		activeTrade("put-1", OptionPut, 3, 2, 2),
		closedTrade("old", 50),
	}

	actions := DetermineActions(DetermineInput{
		Signals:   []RiskSignal{extremeVolatilitySignal()},
		Trades:    trades,
		Tolerance: ToleranceAggressive,
		Profile:   MarketRiskProfile{CompositeRiskScore: 0.6},
	})

	require.Len(t, actions, 1)
	a := actions[0]
	assert.Equal(t, ActionHedgePosition, a.ActionType)
	assert.Equal(t, []string{"call-1", "put-1"}, a.TradeIDs)
	assert.Equal(t, "sig-vol", a.SignalID)
	assert.Equal(t, map[string]float64{ParamHedgeRatio: 0.5}, a.Parameters)
	assert.Equal(t, ToleranceAggressive, a.UserRiskTolerance)
	assert.InDelta(t, 0.6, a.PreviousRisk, 1e-9)
	assert.InDelta(t, 0.36, a.NewRisk, 1e-9)
	assert.LessOrEqual(t, a.NewRisk, a.PreviousRisk)
}

func TestDetermineActionsTechnicalBearishConservative(t *testing.T) {
	signal := RiskSignal{
		ID:         "sig-rsi",
		Source:     SourceTechnical,
		Condition:  ConditionBullish,
		Strength:   StrengthStrong,
		Direction:  DirectionBearish,
		Confidence: 1,
	}
	trades := []Trade{
		activeTrade("call-1", OptionCall, 2, 1.5, 4),
		activeTrade("put-win", OptionPut, 2, 3, 2),
		activeTrade("put-lose", OptionPut, 2, 1, 2),
	}

	actions := DetermineActions(DetermineInput{
		Signals:   []RiskSignal{signal},
		Trades:    trades,
		Tolerance: ToleranceConservative,
		Profile:   MarketRiskProfile{CompositeRiskScore: 0.8},
	})

	require.Len(t, actions, 2)

	assert.Equal(t, ActionReducePositionSize, actions[0].ActionType)
	assert.Equal(t, []string{"call-1"}, actions[0].TradeIDs)
	assert.Equal(t, map[string]float64{ParamReductionFactor: 0.5}, actions[0].Parameters)
	assert.InDelta(t, 0.4, actions[0].NewRisk, 1e-9)

	assert.Equal(t, ActionAdjustTakeProfit, actions[1].ActionType)
	assert.Equal(t, []string{"put-win"}, actions[1].TradeIDs)
	assert.Equal(t, map[string]float64{ParamAdjustmentFactor: 0.8}, actions[1].Parameters)
	assert.Equal(t, DirectionBearish, actions[1].SignalDirection)
}

func TestDetermineActionsBullishTechnicalTargetsPuts(t *testing.T) {
	signal := RiskSignal{ID: "s", Source: SourceTechnical, Strength: StrengthExtreme, Direction: DirectionBullish, Confidence: 0.9}
	trades := []Trade{
		activeTrade("call-1", OptionCall, 2, 1, 1),
		activeTrade("put-1", OptionPut, 2, 1, 1),
	}

	actions := DetermineActions(DetermineInput{
		Signals:   []RiskSignal{signal},
		Trades:    trades,
		Tolerance: ToleranceConservative,
	})

	require.Len(t, actions, 1)
	assert.Equal(t, ActionExitTrade, actions[0].ActionType)
	assert.Equal(t, []string{"put-1"}, actions[0].TradeIDs)
	assert.Empty(t, actions[0].Parameters)
}

func TestDetermineActionsStrongestSignalWins(t *testing.T) {
	weak := RiskSignal{ID: "weak", Source: SourceTechnical, Strength: StrengthModerate, Direction: DirectionBearish, Confidence: 0.7}
	strong := RiskSignal{ID: "strong", Source: SourceTechnical, Strength: StrengthStrong, Direction: DirectionBearish, Confidence: 0.8}
	trades := []Trade{activeTrade("call-1", OptionCall, 2, 1, 3)}

	actions := DetermineActions(DetermineInput{
		Signals:   []RiskSignal{weak, strong},
		Trades:    trades,
		Tolerance: ToleranceModerate,
	})

	require.Len(t, actions, 1)
	assert.Equal(t, "strong", actions[0].SignalID)
	assert.Equal(t, ActionAdjustStopLoss, actions[0].ActionType)
}

func TestDetermineActionsNeverEmitsNoAction(t *testing.T) {
	signals := []RiskSignal{
		{ID: "a", Source: SourceTechnical, Strength: StrengthModerate, Direction: DirectionBearish, Confidence: 0.7},
		{ID: "b", Source: SourceVolatility, Strength: StrengthModerate, Direction: DirectionBullish, Confidence: 0.7},
		{ID: "c", Source: SourceVolatility, Strength: StrengthWeak, Direction: DirectionBearish, Confidence: 0.5},
		{ID: "d", Source: SourceEconomic, Strength: StrengthExtreme, Direction: DirectionBearish, Confidence: 1},
		{ID: "e", Source: SourceTechnical, Strength: StrengthStrong, Direction: DirectionNeutral, Confidence: 1},
	}
	trades := []Trade{
		activeTrade("call-1", OptionCall, 2, 1, 3),
		activeTrade("put-1", OptionPut, 2, 1, 3),
	}

	actions := DetermineActions(DetermineInput{Signals: signals, Trades: trades, Tolerance: ToleranceModerate})

	assert.Empty(t, actions)
	assert.NotNil(t, actions)
}

func TestDetermineActionsWithoutTrades(t *testing.T) {
	actions := DetermineActions(DetermineInput{
		Signals:   []RiskSignal{extremeVolatilitySignal()},
		Tolerance: ToleranceConservative,
	})
	assert.Empty(t, actions)

	actions = DetermineActions(DetermineInput{
		Signals:   []RiskSignal{extremeVolatilitySignal()},
		Trades:    []Trade{closedTrade("done", 10)},
		Tolerance: ToleranceConservative,
	})
	assert.Empty(t, actions)
}

func TestDetermineActionsInvalidToleranceFallsBackToModerate(t *testing.T) {
	actions := DetermineActions(DetermineInput{
		Signals:   []RiskSignal{extremeVolatilitySignal()},
		Trades:    []Trade{activeTrade("call-1", OptionCall, 2, 1, 3)},
		Tolerance: "reckless",
	})

	require.Len(t, actions, 1)
	assert.Equal(t, ActionHedgePosition, actions[0].ActionType)
	assert.Equal(t, ToleranceModerate, actions[0].UserRiskTolerance)
}

func TestDetermineActionsConsultsLearnedInsights(t *testing.T) {
	signal := extremeVolatilitySignal()
	trades := []Trade{activeTrade("call-1", OptionCall, 2, 1, 3)}

	insight := func(confidence float64, best ...ActionType) LearningInsight {
		return LearningInsight{
			ID:                 "ins",
			Timestamp:          baseTime,
			SignalPattern:      signal.Pattern(),
			Confidence:         confidence,
			RecommendedActions: best,
		}
	}

	tests := []struct {
		name     string
		insights []LearningInsight
		want     ActionType
	}{
		{"no insights uses table", nil, ActionHedgePosition},
		{"confident insight overrides", []LearningInsight{insight(0.9, ActionExitTrade, ActionHedgePosition)}, ActionExitTrade},
		{"low confidence ignored", []LearningInsight{insight(0.3, ActionExitTrade)}, ActionHedgePosition},
		{"non risk-reducing recommendation ignored", []LearningInsight{insight(0.9, ActionIncreasePositionSize)}, ActionHedgePosition},
		{
			name: "other pattern ignored",
			insights: []LearningInsight{{
				SignalPattern:      SignalPattern{Source: SourceTechnical, Condition: ConditionVolatile, Strength: StrengthExtreme, Direction: DirectionBearish},
				Confidence:         1,
				RecommendedActions: []ActionType{ActionExitTrade},
			}},
			want: ActionHedgePosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := DetermineActions(DetermineInput{
				Signals:   []RiskSignal{signal},
				Trades:    trades,
				Tolerance: ToleranceAggressive,
				Settings:  DefaultSettings(),
				Insights:  tt.insights,
			})
			require.Len(t, actions, 1)
			assert.Equal(t, tt.want, actions[0].ActionType)
		})
	}
}

func TestDetermineActionsLearningNeverReplacesNoAction(t *testing.T) {
	signal := RiskSignal{ID: "s", Source: SourceTechnical, Strength: StrengthModerate, Direction: DirectionBearish, Confidence: 0.7}
	insights := []LearningInsight{{
		SignalPattern:      signal.Pattern(),
		Confidence:         1,
		RecommendedActions: []ActionType{ActionExitTrade},
	}}

	actions := DetermineActions(DetermineInput{
		Signals:   []RiskSignal{signal},
		Trades:    []Trade{activeTrade("call-1", OptionCall, 2, 1, 3)},
		Tolerance: ToleranceAggressive,
		Insights:  insights,
	})

	assert.Empty(t, actions)
}

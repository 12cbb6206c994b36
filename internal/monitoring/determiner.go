package monitoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultLearningOverrideConfidence is the insight confidence needed before a
// learned action replaces the decision table's choice
const DefaultLearningOverrideConfidence = 0.6

// DetermineInput is everything the action determiner needs for one pass
type DetermineInput struct {
	Signals   []RiskSignal
	Trades    []Trade
	Settings  AITradingSettings
	Tolerance RiskToleranceType
	Profile   MarketRiskProfile
	Insights  []LearningInsight
}

// learnableActions are the table outcomes a confident insight may replace, and the
// actions it may replace them with
var learnableActions = map[ActionType]bool{
	ActionExitTrade:          true,
	ActionReducePositionSize: true,
	ActionHedgePosition:      true,
	ActionAdjustStopLoss:     true,
}

// DetermineActions turns detected signals into risk actions on the active trades.
// Each source/direction group contributes through its highest-confidence signal;
// no_action outcomes are never emitted.
func DetermineActions(in DetermineInput) []RiskAction {
	tolerance := in.Tolerance
	if !tolerance.Valid() {
		tolerance = ToleranceModerate
	}

	groups := GroupSignals(in.Signals)
	actions := []RiskAction{}

	for _, key := range groupOrder(in.Signals) {
		best := strongestSignal(groups[key])

		switch best.Source {
		case SourceTechnical:
			actions = append(actions, technicalActions(best, in, tolerance)...)
		case SourceVolatility:
			actions = append(actions, volatilityActions(best, in, tolerance)...)
		default:
			// Economic, earnings, Fed, geopolitical and sentiment signals have no
			// action mapping yet
			log.Debug().
				Str("group", key).
				Msg("No action mapping for signal source")
		}
	}

	log.Debug().
		Int("signals", len(in.Signals)).
		Int("actions", len(actions)).
		Str("tolerance", string(tolerance)).
		Msg("Risk actions determined")

	return actions
}

// groupOrder returns group keys in order of first detection
func groupOrder(signals []RiskSignal) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, s := range signals {
		key := GroupKey(s.Source, s.Direction)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// strongestSignal returns the highest-confidence signal; earlier signals win ties
func strongestSignal(signals []RiskSignal) RiskSignal {
	best := signals[0]
	for _, s := range signals[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	return best
}

func technicalActions(signal RiskSignal, in DetermineInput, tolerance RiskToleranceType) []RiskAction {
	var target OptionType
	switch signal.Direction {
	case DirectionBearish:
		target = OptionCall
	case DirectionBullish:
		target = OptionPut
	default:
		return nil
	}

	var actions []RiskAction

	decision := learnedDecision(signal, TechnicalDecision(signal.Strength, tolerance), in)
	if decision.Action != ActionNoAction {
		if ids := activeTradeIDs(in.Trades, func(t Trade) bool { return t.Type == target }); len(ids) > 0 {
			actions = append(actions, newAction(signal, decision, ids, in.Profile, tolerance,
				fmt.Sprintf("%s on %d %s trade(s): %s", humanize(decision.Action), len(ids), target, signal.Description)))
		}
	}

	// Lock in gains on the side the signal favours
	if signal.Strength == StrengthStrong || signal.Strength == StrengthExtreme {
		opposite := target.Opposite()
		ids := activeTradeIDs(in.Trades, func(t Trade) bool { return t.Type == opposite && t.IsProfitable() })
		if len(ids) > 0 {
			tp := Decision{Action: ActionAdjustTakeProfit, RiskReduction: riskReductions[ActionAdjustTakeProfit]}
			actions = append(actions, newAction(signal, tp, ids, in.Profile, tolerance,
				fmt.Sprintf("Tighten take-profit on %d profitable %s trade(s): %s", len(ids), opposite, signal.Description)))
		}
	}

	return actions
}

func volatilityActions(signal RiskSignal, in DetermineInput, tolerance RiskToleranceType) []RiskAction {
	// Falling volatility is informational only
	if signal.Direction != DirectionBearish {
		return nil
	}

	decision := learnedDecision(signal, VolatilityDecision(signal.Strength, tolerance), in)
	if decision.Action == ActionNoAction {
		return nil
	}

	ids := activeTradeIDs(in.Trades, func(Trade) bool { return true })
	if len(ids) == 0 {
		return nil
	}

	return []RiskAction{newAction(signal, decision, ids, in.Profile, tolerance,
		fmt.Sprintf("%s on %d trade(s): %s", humanize(decision.Action), len(ids), signal.Description))}
}

// learnedDecision swaps the table's choice for the best historically performing
// action when a confident insight exists for the signal's pattern
func learnedDecision(signal RiskSignal, table Decision, in DetermineInput) Decision {
	if len(in.Insights) == 0 || !learnableActions[table.Action] {
		return table
	}

	threshold := in.Settings.LearningOverrideConfidence
	if threshold <= 0 {
		threshold = DefaultLearningOverrideConfidence
	}

	insight, ok := findInsight(signal.Pattern(), in.Insights)
	if !ok || insight.Confidence < threshold || len(insight.RecommendedActions) == 0 {
		return table
	}

	learned := insight.RecommendedActions[0]
	if !learnableActions[learned] || learned == table.Action {
		return table
	}

	log.Debug().
		Str("pattern", signal.Pattern().Key()).
		Str("table_action", string(table.Action)).
		Str("learned_action", string(learned)).
		Float64("insight_confidence", insight.Confidence).
		Msg("Using learned action")

	return Decision{Action: learned, RiskReduction: riskReductions[learned]}
}

func activeTradeIDs(trades []Trade, match func(Trade) bool) []string {
	var ids []string
	for _, t := range trades {
		if t.IsActive() && match(t) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func newAction(signal RiskSignal, decision Decision, tradeIDs []string, profile MarketRiskProfile,
	tolerance RiskToleranceType, description string) RiskAction {
	previous := clamp01(profile.CompositeRiskScore)
	return RiskAction{
		ID:                uuid.New().String(),
		SignalID:          signal.ID,
		Timestamp:         time.Now().UTC(),
		ActionType:        decision.Action,
		TradeIDs:          tradeIDs,
		Description:       description,
		Parameters:        defaultParameters(decision.Action),
		SignalDirection:   signal.Direction,
		PreviousRisk:      previous,
		NewRisk:           clamp01(previous * (1 - decision.RiskReduction)),
		UserRiskTolerance: tolerance,
	}
}

func humanize(a ActionType) string {
	s := strings.ReplaceAll(string(a), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

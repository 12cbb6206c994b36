package monitoring

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	cycles   []CycleResult
	insights [][]LearningInsight
}

func (r *recordingObserver) OnCycle(_ context.Context, result CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, result)
}

func (r *recordingObserver) OnInsights(_ context.Context, insights []LearningInsight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insights = append(r.insights, insights)
}

// extremeVolatilityInput has a calm price history and VIX at 42
func extremeVolatilityInput(tolerance RiskToleranceType) CycleInput {
	history := dailySeries(alternatingPrices(12, 100), 40)
	return CycleInput{
		Market:  snapshotAfter(history, 100.5, 42),
		History: history,
		Trades: []Trade{
			activeTrade("call-1", OptionCall, 2, 2.4, 4),
			activeTrade("put-1", OptionPut, 1.5, 1.2, 2),
			closedTrade("old", 20),
		},
		Options: []OptionContract{
			{ID: "p100", Type: OptionPut, StrikePrice: 100, ExpirationDate: expiry, Premium: 1.8},
			{ID: "c100", Type: OptionCall, StrikePrice: 100, ExpirationDate: expiry, Premium: 2.1},
		},
		Settings:      DefaultSettings(),
		RiskTolerance: tolerance,
	}
}

func TestMonitorRunCycleExtremeVolatility(t *testing.T) {
	observer := &recordingObserver{}
	monitor := NewMonitor(nil, WithObserver(observer))

	result, err := monitor.RunCycle(context.Background(), extremeVolatilityInput(ToleranceAggressive))
	require.NoError(t, err)

	assert.Equal(t, ConditionVolatile, result.Profile.CurrentCondition)

	require.Len(t, result.Signals, 1)
	signal := result.Signals[0]
	assert.Equal(t, SourceVolatility, signal.Source)
	assert.Equal(t, StrengthExtreme, signal.Strength)
	assert.Equal(t, DirectionBearish, signal.Direction)
	assert.Equal(t, ConditionVolatile, signal.Condition)
	assert.Equal(t, 0.9, signal.Confidence)

	require.Len(t, result.Actions, 1)
	assert.Equal(t, ActionHedgePosition, result.Actions[0].ActionType)
	assert.Equal(t, []string{"call-1", "put-1"}, result.Actions[0].TradeIDs)
	assert.False(t, result.Applied)
	assert.Len(t, result.Trades, 3)

	logged := monitor.Store().Snapshot()
	assert.Equal(t, result.Signals, logged.Signals)
	assert.Equal(t, result.Actions, logged.Actions)
	for _, a := range logged.Actions {
		_, ok := monitor.Store().Signal(a.SignalID)
		assert.True(t, ok)
	}

	require.Len(t, observer.cycles, 1)
	assert.Equal(t, result.Actions, observer.cycles[0].Actions)
}

func TestMonitorRunCycleApply(t *testing.T) {
	in := extremeVolatilityInput(ToleranceAggressive)
	in.Apply = true

	result, err := NewMonitor(NewMemoryLogStore()).RunCycle(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, result.Applied)
	// one hedge per active trade
	require.Len(t, result.Trades, 5)
	assert.Equal(t, OptionPut, result.Trades[3].Type)
	assert.Equal(t, 2, result.Trades[3].Quantity)
	assert.Equal(t, OptionCall, result.Trades[4].Type)
	assert.Equal(t, 1, result.Trades[4].Quantity)
}

func TestMonitorRunCycleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	monitor := NewMonitor(nil)
	_, err := monitor.RunCycle(ctx, extremeVolatilityInput(ToleranceModerate))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, monitor.Store().Snapshot().Signals)
}

func TestMonitorLearnFromLoggedActions(t *testing.T) {
	observer := &recordingObserver{}
	monitor := NewMonitor(nil, WithObserver(observer))

	result, err := monitor.RunCycle(context.Background(), extremeVolatilityInput(ToleranceAggressive))
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)

	closed := []Trade{closedTrade("call-1", 80), closedTrade("put-1", 40)}
	insights, err := monitor.Learn(context.Background(), closed, nil)
	require.NoError(t, err)

	require.Len(t, insights, 1)
	assert.Equal(t, result.Signals[0].Pattern(), insights[0].SignalPattern)
	assert.Equal(t, ActionHedgePosition, insights[0].ActionTaken)
	assert.Equal(t, 1.0, insights[0].SuccessRate)
	assert.Equal(t, insights, monitor.Store().Snapshot().LearningInsights)

	require.Len(t, observer.insights, 1)
	assert.Equal(t, insights, observer.insights[0])

	assert.Equal(t, []ActionType{ActionHedgePosition}, monitor.Recommend(result.Signals[0]))
}

func TestMonitorCycleUsesLearnedInsights(t *testing.T) {
	in := extremeVolatilityInput(ToleranceAggressive)
	monitor := NewMonitor(nil)
	monitor.Store().AppendInsights(LearningInsight{
		ID:        "learned",
		Timestamp: baseTime,
		SignalPattern: SignalPattern{
			Source:    SourceVolatility,
			Condition: ConditionVolatile,
			Strength:  StrengthExtreme,
			Direction: DirectionBearish,
		},
		Confidence:         0.9,
		RecommendedActions: []ActionType{ActionExitTrade},
	})

	result, err := monitor.RunCycle(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, result.Actions, 1)
	assert.Equal(t, ActionExitTrade, result.Actions[0].ActionType)
}

func TestMonitorCustomRegistry(t *testing.T) {
	feed := NewFeedDetector("sentiment", SourceSentiment, nil).WithFeed(func(in DetectionInput) []RiskSignal {
		return []RiskSignal{newSignal(in, SourceSentiment, StrengthStrong, DirectionBearish, 0.8, "negative headlines", nil)}
	})
	monitor := NewMonitor(nil, WithRegistry(NewDetectorRegistry(feed)))

	result, err := monitor.RunCycle(context.Background(), extremeVolatilityInput(ToleranceConservative))
	require.NoError(t, err)

	require.Len(t, result.Signals, 1)
	assert.Equal(t, SourceSentiment, result.Signals[0].Source)
	// sentiment signals have no action mapping
	assert.Empty(t, result.Actions)
}

func TestMonitorRunCycleVIXSpikePicksMostConfidentSignal(t *testing.T) {
	in := extremeVolatilityInput(ToleranceAggressive)
	in.History = dailySeries(alternatingPrices(12, 100), 18)
	in.Market = snapshotAfter(in.History, 100.5, 42)

	result, err := NewMonitor(nil).RunCycle(context.Background(), in)
	require.NoError(t, err)

	jump := findSignals(result.Signals, SourceVolatility, DirectionBearish, StrengthStrong)
	level := findSignals(result.Signals, SourceVolatility, DirectionBearish, StrengthExtreme)
	require.Len(t, jump, 1)
	require.Len(t, level, 1)
	assert.Equal(t, 1.0, jump[0].Confidence)
	assert.Equal(t, 0.9, level[0].Confidence)

	// The jump reading is more confident than the level reading, so it drives the group
	require.Len(t, result.Actions, 1)
	assert.Equal(t, jump[0].ID, result.Actions[0].SignalID)
	assert.Equal(t, ActionAdjustStopLoss, result.Actions[0].ActionType)
	assert.Equal(t, []string{"call-1", "put-1"}, result.Actions[0].TradeIDs)
}

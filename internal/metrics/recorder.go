package metrics

import (
	"context"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

var conditions = []monitoring.MarketCondition{
	monitoring.ConditionBullish,
	monitoring.ConditionBearish,
	monitoring.ConditionNeutral,
	monitoring.ConditionVolatile,
}

// Recorder turns monitoring cycles and learned insights into Prometheus samples
type Recorder struct {
	store monitoring.LogStore
}

// NewRecorder creates a recorder. When store is non-nil the log size gauges are
// refreshed after every notification.
func NewRecorder(store monitoring.LogStore) *Recorder {
	return &Recorder{store: store}
}

// OnCycle implements monitoring.CycleObserver
func (r *Recorder) OnCycle(_ context.Context, result monitoring.CycleResult) {
	CyclesTotal.Inc()
	CycleDuration.Observe(durationMs(result.Duration))

	for _, s := range result.Signals {
		SignalsDetected.WithLabelValues(string(s.Source), string(s.Strength)).Inc()
	}
	for _, a := range result.Actions {
		ActionsDetermined.WithLabelValues(string(a.ActionType)).Inc()
	}
	if result.Applied {
		ActionsApplied.Add(float64(len(result.Actions)))
	}

	CompositeRiskScore.Set(result.Profile.CompositeRiskScore)
	VolatilityLevel.Set(result.Profile.VolatilityLevel)
	for _, c := range conditions {
		v := 0.0
		if c == result.Profile.CurrentCondition {
			v = 1
		}
		MarketCondition.WithLabelValues(string(c)).Set(v)
	}

	active := 0
	for _, t := range result.Trades {
		if t.IsActive() {
			active++
		}
	}
	ActiveTrades.Set(float64(active))

	r.refreshLog()
}

// OnInsights implements monitoring.InsightObserver
func (r *Recorder) OnInsights(_ context.Context, insights []monitoring.LearningInsight) {
	InsightsLearned.Add(float64(len(insights)))
	for _, in := range insights {
		InsightSuccessRate.WithLabelValues(string(in.ActionTaken)).Set(in.SuccessRate)
	}
	r.refreshLog()
}

func (r *Recorder) refreshLog() {
	if r.store == nil {
		return
	}
	snap := r.store.Snapshot()
	UpdateLogEntries(len(snap.Signals), len(snap.Actions), len(snap.LearningInsights))
}

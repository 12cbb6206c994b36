package alerts

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/riskmonitor/internal/metrics"
	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

func TestSignalAlert(t *testing.T) {
	r := NewRiskAlerter(NewManager(), RiskPolicy{MinConfidence: 0.7})

	tests := []struct {
		name       string
		strength   monitoring.SignalStrength
		confidence float64
		wantOK     bool
		severity   Severity
	}{
		{"extreme is critical", monitoring.StrengthExtreme, 0.9, true, SeverityCritical},
		{"strong is warning", monitoring.StrengthStrong, 0.7, true, SeverityWarning},
		{"moderate is ignored", monitoring.StrengthModerate, 0.95, false, ""},
		{"weak is ignored", monitoring.StrengthWeak, 1, false, ""},
		{"low confidence is ignored", monitoring.StrengthExtreme, 0.69, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert, ok := r.SignalAlert(monitoring.RiskSignal{
				ID:         "s1",
				Source:     monitoring.SourceVolatility,
				Strength:   tt.strength,
				Confidence: tt.confidence,
			})
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.severity, alert.Severity)
				assert.Equal(t, "s1", alert.Metadata["signal_id"])
			}
		})
	}
}

func TestActionAlert(t *testing.T) {
	r := NewRiskAlerter(NewManager(), RiskPolicy{})

	tests := []struct {
		name       string
		actionType monitoring.ActionType
		wantAlert  bool
		severity   Severity
		title      string
	}{
		{"exit is critical", monitoring.ActionExitTrade, true, SeverityCritical, "Exit recommended"},
		{"hedge is warning", monitoring.ActionHedgePosition, true, SeverityWarning, "Hedge recommended"},
		{"reduce is quiet", monitoring.ActionReducePositionSize, false, "", ""},
		{"stop loss is quiet", monitoring.ActionAdjustStopLoss, false, "", ""},
		{"take profit is quiet", monitoring.ActionAdjustTakeProfit, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert, ok := r.ActionAlert(monitoring.RiskAction{
				ID:         "a1",
				SignalID:   "s1",
				ActionType: tt.actionType,
				TradeIDs:   []string{"t1", "t2"},
			})
			require.Equal(t, tt.wantAlert, ok)
			if !tt.wantAlert {
				return
			}
			assert.Equal(t, tt.severity, alert.Severity)
			assert.Equal(t, tt.title, alert.Title)
			assert.Equal(t, 2, alert.Metadata["trades"])
			assert.Equal(t, "a1", alert.Metadata["action_id"])
		})
	}
}

func TestRiskAlerterOnCycle(t *testing.T) {
	rec := &mockAlerter{}
	r := NewRiskAlerter(NewManager(rec), RiskPolicy{MinConfidence: 0.5, PerMinute: 10})

	critical := metrics.AlertsSent.WithLabelValues(string(SeverityCritical))
	before := testutil.ToFloat64(critical)

	r.OnCycle(context.Background(), monitoring.CycleResult{
		Signals: []monitoring.RiskSignal{
			{ID: "s1", Strength: monitoring.StrengthExtreme, Confidence: 0.9},
			{ID: "s2", Strength: monitoring.StrengthWeak, Confidence: 0.9},
		},
		Actions: []monitoring.RiskAction{
			{ID: "a1", ActionType: monitoring.ActionExitTrade},
			{ID: "a2", ActionType: monitoring.ActionReducePositionSize},
			{ID: "a3", ActionType: monitoring.ActionHedgePosition},
		},
	})

	sent := rec.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "s1", sent[0].Metadata["signal_id"])
	assert.Equal(t, "a1", sent[1].Metadata["action_id"])
	assert.Equal(t, "a3", sent[2].Metadata["action_id"])
	assert.Equal(t, SeverityWarning, sent[2].Severity)
	assert.Equal(t, before+2, testutil.ToFloat64(critical))
}

func TestRiskAlerterThrottles(t *testing.T) {
	rec := &mockAlerter{}
	r := NewRiskAlerter(NewManager(rec), RiskPolicy{PerMinute: 2})
	throttledBefore := testutil.ToFloat64(metrics.AlertsThrottled)

	signals := make([]monitoring.RiskSignal, 5)
	for i := range signals {
		signals[i] = monitoring.RiskSignal{Strength: monitoring.StrengthExtreme, Confidence: 1}
	}
	r.OnCycle(context.Background(), monitoring.CycleResult{Signals: signals})

	assert.Len(t, rec.sent(), 2)
	assert.Equal(t, throttledBefore+3, testutil.ToFloat64(metrics.AlertsThrottled))
}

func TestRiskAlerterDefaults(t *testing.T) {
	r := NewRiskAlerter(NewManager(), RiskPolicy{})
	assert.Equal(t, DefaultMinConfidence, r.minConfidence)
	assert.Equal(t, DefaultPerMinute, r.limiter.Burst())
}

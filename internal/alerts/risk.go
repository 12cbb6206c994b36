package alerts

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ajitpratap0/riskmonitor/internal/metrics"
	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

const (
	// DefaultMinConfidence is the signal confidence below which no alert is raised
	DefaultMinConfidence = 0.7
	// DefaultPerMinute is the alert budget before throttling starts
	DefaultPerMinute = 10

	sendTimeout = 10 * time.Second
)

// RiskPolicy decides which monitoring output becomes an alert
type RiskPolicy struct {
	MinConfidence float64
	PerMinute     int
}

// RiskAlerter raises alerts for strong signals and exit recommendations
// produced by a monitoring cycle, within a per-minute budget
type RiskAlerter struct {
	manager       *Manager
	minConfidence float64
	limiter       *rate.Limiter
}

// NewRiskAlerter creates an alerter sending through manager
func NewRiskAlerter(manager *Manager, policy RiskPolicy) *RiskAlerter {
	if policy.MinConfidence <= 0 {
		policy.MinConfidence = DefaultMinConfidence
	}
	if policy.PerMinute <= 0 {
		policy.PerMinute = DefaultPerMinute
	}
	return &RiskAlerter{
		manager:       manager,
		minConfidence: policy.MinConfidence,
		limiter:       rate.NewLimiter(rate.Every(time.Minute/time.Duration(policy.PerMinute)), policy.PerMinute),
	}
}

// SignalAlert maps a signal to an alert. ok is false when the signal is too weak
// or too uncertain to alert on.
func (r *RiskAlerter) SignalAlert(s monitoring.RiskSignal) (Alert, bool) {
	if s.Confidence < r.minConfidence {
		return Alert{}, false
	}

	var severity Severity
	switch s.Strength {
	case monitoring.StrengthExtreme:
		severity = SeverityCritical
	case monitoring.StrengthStrong:
		severity = SeverityWarning
	default:
		return Alert{}, false
	}

	return Alert{
		Title:     fmt.Sprintf("%s %s risk signal", s.Strength, s.Source),
		Message:   s.Description,
		Severity:  severity,
		Timestamp: s.Timestamp,
		Metadata: map[string]interface{}{
			"signal_id":  s.ID,
			"direction":  string(s.Direction),
			"condition":  string(s.Condition),
			"confidence": s.Confidence,
		},
	}, true
}

// ActionAlert maps an action to an alert. Exits are critical, hedges are
// warnings; other actions are not alerted on.
func (r *RiskAlerter) ActionAlert(a monitoring.RiskAction) (Alert, bool) {
	var (
		title    string
		severity Severity
	)
	switch a.ActionType {
	case monitoring.ActionExitTrade:
		title, severity = "Exit recommended", SeverityCritical
	case monitoring.ActionHedgePosition:
		title, severity = "Hedge recommended", SeverityWarning
	default:
		return Alert{}, false
	}
	return Alert{
		Title:     title,
		Message:   a.Description,
		Severity:  severity,
		Timestamp: a.Timestamp,
		Metadata: map[string]interface{}{
			"action_id": a.ID,
			"signal_id": a.SignalID,
			"trades":    len(a.TradeIDs),
			"new_risk":  a.NewRisk,
		},
	}, true
}

// OnCycle implements monitoring.CycleObserver
func (r *RiskAlerter) OnCycle(ctx context.Context, result monitoring.CycleResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	for _, s := range result.Signals {
		if alert, ok := r.SignalAlert(s); ok {
			r.send(ctx, alert)
		}
	}
	for _, a := range result.Actions {
		if alert, ok := r.ActionAlert(a); ok {
			r.send(ctx, alert)
		}
	}
}

func (r *RiskAlerter) send(ctx context.Context, alert Alert) {
	if !r.limiter.Allow() {
		metrics.RecordAlertThrottled()
		return
	}
	// Manager logs channel failures itself
	_ = r.manager.Send(ctx, alert)
	metrics.RecordAlert(string(alert.Severity))
}

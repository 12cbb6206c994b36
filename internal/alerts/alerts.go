// Package alerts fans risk alerts out to log and chat channels.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Severity levels for alerts
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// rank orders severities; unknown severities rank below INFO
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as floor
func (s Severity) AtLeast(floor Severity) bool {
	return s.rank() >= floor.rank()
}

// ParseSeverity parses a case-insensitive severity name
func ParseSeverity(name string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(name)))
	if s.rank() == 0 {
		return "", fmt.Errorf("unknown alert severity %q", name)
	}
	return s, nil
}

// Alert is one notification about the portfolio's risk
type Alert struct {
	Title     string
	Message   string
	Severity  Severity
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// Alerter delivers alerts to one channel
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

type route struct {
	alerter Alerter
	floor   Severity
}

// Manager routes each alert to the channels whose minimum severity it meets
type Manager struct {
	routes []route
}

// NewManager creates a manager that sends every alert to each of alerters
func NewManager(alerters ...Alerter) *Manager {
	m := &Manager{}
	for _, a := range alerters {
		m.Route(a, SeverityInfo)
	}
	return m
}

// Route registers a channel that only receives alerts at or above floor
func (m *Manager) Route(a Alerter, floor Severity) {
	m.routes = append(m.routes, route{alerter: a, floor: floor})
}

// Len returns the number of channels
func (m *Manager) Len() int {
	return len(m.routes)
}

// Send delivers alert to every matching channel. A failing channel does not
// stop the others; all failures are joined.
func (m *Manager) Send(ctx context.Context, alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	var errs []error
	for _, r := range m.routes {
		if !alert.Severity.AtLeast(r.floor) {
			continue
		}
		if err := r.alerter.Send(ctx, alert); err != nil {
			log.Error().
				Err(err).
				Str("title", alert.Title).
				Str("severity", string(alert.Severity)).
				Msg("Failed to send alert")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogAlerter writes alerts to the global zerolog logger
type LogAlerter struct{}

// NewLogAlerter creates a new log-based alerter
func NewLogAlerter() *LogAlerter {
	return &LogAlerter{}
}

func levelFor(s Severity) zerolog.Level {
	switch s {
	case SeverityCritical:
		return zerolog.ErrorLevel
	case SeverityWarning:
		return zerolog.WarnLevel
	case SeverityInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.NoLevel
	}
}

// Send logs the alert at a level matching its severity
func (l *LogAlerter) Send(_ context.Context, alert Alert) error {
	event := log.WithLevel(levelFor(alert.Severity)).
		Str("alert_title", alert.Title).
		Str("alert_severity", string(alert.Severity)).
		Time("alert_time", alert.Timestamp)
	for key, value := range alert.Metadata {
		event = event.Interface(key, value)
	}
	event.Msg("ALERT: " + alert.Message)
	return nil
}

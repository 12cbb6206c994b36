package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels.
const (
	// Persistence operations
	OperationSave = "save"
	OperationLoad = "load"

	// Persistence error categories
	PersistenceErrorTimeout     = "timeout"
	PersistenceErrorNotFound    = "not_found"
	PersistenceErrorBreakerOpen = "breaker_open"
	PersistenceErrorNetwork     = "network"
	PersistenceErrorInvalidLog  = "invalid_log"
	PersistenceErrorOther       = "other"

	// Log sections
	SectionSignals  = "signals"
	SectionActions  = "actions"
	SectionInsights = "insights"
)

// NormalizePersistenceError maps persistence errors to a bounded set
func NormalizePersistenceError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return PersistenceErrorTimeout
	case strings.Contains(errStr, "not found"):
		return PersistenceErrorNotFound
	case strings.Contains(errStr, "circuit breaker") || strings.Contains(errStr, "too many requests"):
		return PersistenceErrorBreakerOpen
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") || strings.Contains(errStr, "refused"):
		return PersistenceErrorNetwork
	case strings.Contains(errStr, "invalid monitoring log"):
		return PersistenceErrorInvalidLog
	default:
		return PersistenceErrorOther
	}
}

// Pipeline metrics
var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskmonitor_cycles_total",
		Help: "Total number of completed monitoring cycles",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskmonitor_cycle_duration_ms",
		Help:    "Monitoring cycle duration in milliseconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	})

	SignalsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskmonitor_signals_total",
		Help: "Risk signals detected by source and strength",
	}, []string{"source", "strength"})

	ActionsDetermined = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskmonitor_actions_total",
		Help: "Risk actions determined by action type",
	}, []string{"action_type"})

	ActionsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskmonitor_actions_applied_total",
		Help: "Risk actions applied to the trade portfolio",
	})

	CompositeRiskScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskmonitor_composite_risk_score",
		Help: "Composite risk score of the latest cycle (0.0 to 1.0)",
	})

	VolatilityLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskmonitor_volatility_level",
		Help: "Volatility level of the latest cycle (0.0 to 1.0)",
	})

	MarketCondition = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskmonitor_market_condition",
		Help: "Current market condition (1 for the active condition)",
	}, []string{"condition"})

	ActiveTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskmonitor_active_trades",
		Help: "Number of active trades after the latest cycle",
	})
)

// Learning metrics
var (
	InsightsLearned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskmonitor_insights_total",
		Help: "Learning insights produced",
	})

	InsightSuccessRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskmonitor_insight_success_rate",
		Help: "Latest success rate by the insight's top-ranked action",
	}, []string{"action_type"})

	LogEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskmonitor_log_entries",
		Help: "Entries in the monitoring log by section",
	}, []string{"section"})
)

// Adapter metrics
var (
	PersistenceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskmonitor_persistence_operations_total",
		Help: "Persistence operations by backend, operation and status",
	}, []string{"backend", "operation", "status"})

	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskmonitor_persistence_errors_total",
		Help: "Persistence errors by backend and category",
	}, []string{"backend", "error_type"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskmonitor_circuit_breaker_state",
		Help: "Circuit breaker state per backend (0=closed, 1=half-open, 2=open)",
	}, []string{"backend"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskmonitor_events_published_total",
		Help: "NATS events published by kind",
	}, []string{"kind"})

	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskmonitor_alerts_total",
		Help: "Alerts sent by severity",
	}, []string{"severity"})

	AlertsThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskmonitor_alerts_throttled_total",
		Help: "Alerts dropped by the rate limiter",
	})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskmonitor_database_connections_active",
		Help: "Number of active database connections",
	})

	DatabaseConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskmonitor_database_connections_idle",
		Help: "Number of idle database connections",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskmonitor_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskmonitor_api_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"method", "path", "status"})
)

// RecordAPIRequest records an API request
func RecordAPIRequest(method, path, statusCode string, durationMs float64) {
	HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationMs)
}

// RecordPersistence records one persistence operation against a backend
func RecordPersistence(backend, operation string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		PersistenceErrors.WithLabelValues(backend, NormalizePersistenceError(err)).Inc()
	}
	PersistenceOperations.WithLabelValues(backend, operation, status).Inc()
}

// UpdateCircuitBreaker records a breaker state (0 closed, 1 half-open, 2 open)
func UpdateCircuitBreaker(backend string, state int) {
	CircuitBreakerState.WithLabelValues(backend).Set(float64(state))
}

// RecordEvent records a published event
func RecordEvent(kind string) {
	EventsPublished.WithLabelValues(kind).Inc()
}

// RecordAlert records a sent alert
func RecordAlert(severity string) {
	AlertsSent.WithLabelValues(severity).Inc()
}

// RecordAlertThrottled records an alert dropped by rate limiting
func RecordAlertThrottled() {
	AlertsThrottled.Inc()
}

// UpdateDatabaseConnections updates database connection pool metrics
func UpdateDatabaseConnections(active, idle int32) {
	DatabaseConnectionsActive.Set(float64(active))
	DatabaseConnectionsIdle.Set(float64(idle))
}

// UpdateLogEntries sets the per-section log sizes
func UpdateLogEntries(signals, actions, insights int) {
	LogEntries.WithLabelValues(SectionSignals).Set(float64(signals))
	LogEntries.WithLabelValues(SectionActions).Set(float64(actions))
	LogEntries.WithLabelValues(SectionInsights).Set(float64(insights))
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

package monitoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CycleInput is one snapshot of everything a monitoring cycle needs. It doubles as
// the snapshot document accepted by the CLI and the HTTP API.
type CycleInput struct {
	Market        MarketData        `json:"market" yaml:"market"`
	History       []MarketData      `json:"history" yaml:"history"`
	Trades        []Trade           `json:"trades" yaml:"trades"`
	Options       []OptionContract  `json:"options" yaml:"options"`
	Settings      AITradingSettings `json:"settings" yaml:"settings"`
	RiskTolerance RiskToleranceType `json:"riskTolerance" yaml:"riskTolerance"`
	// Apply executes the determined actions against the trades
	Apply bool `json:"apply" yaml:"apply"`
}

// CycleResult is what one monitoring cycle produced
type CycleResult struct {
	Profile  MarketRiskProfile `json:"profile"`
	Signals  []RiskSignal      `json:"signals"`
	Actions  []RiskAction      `json:"actions"`
	Trades   []Trade           `json:"trades"`
	Applied  bool              `json:"applied"`
	Duration time.Duration     `json:"duration"`
}

// CycleObserver is notified after every completed cycle
type CycleObserver interface {
	OnCycle(ctx context.Context, result CycleResult)
}

// InsightObserver is notified when the learning engine produces insights
type InsightObserver interface {
	OnInsights(ctx context.Context, insights []LearningInsight)
}

// Monitor runs the pipeline against an injected log store. It holds no other
// mutable state and is safe for concurrent use.
type Monitor struct {
	store     LogStore
	registry  *DetectorRegistry
	observers []CycleObserver
	insights  []InsightObserver
	logger    zerolog.Logger
}

// Option configures a Monitor
type Option func(*Monitor)

// WithRegistry replaces the default detector registry
func WithRegistry(r *DetectorRegistry) Option {
	return func(m *Monitor) { m.registry = r }
}

// WithObserver registers an observer. Observers that also implement
// InsightObserver receive learned insights.
func WithObserver(o CycleObserver) Option {
	return func(m *Monitor) {
		m.observers = append(m.observers, o)
		if io, ok := o.(InsightObserver); ok {
			m.insights = append(m.insights, io)
		}
	}
}

// WithInsightObserver registers an observer for learned insights only
func WithInsightObserver(o InsightObserver) Option {
	return func(m *Monitor) { m.insights = append(m.insights, o) }
}

// NewMonitor creates a monitor writing to store. A nil store gets a fresh in-memory one.
func NewMonitor(store LogStore, opts ...Option) *Monitor {
	if store == nil {
		store = NewMemoryLogStore()
	}
	m := &Monitor{
		store:    store,
		registry: DefaultRegistry(),
		logger:   log.With().Str("component", "monitor").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the monitor's log store
func (m *Monitor) Store() LogStore {
	return m.store
}

// RunCycle analyzes the market, detects signals, determines actions using the
// insights learned so far and records everything in the log. When in.Apply is
// set the actions are also applied to the trades.
func (m *Monitor) RunCycle(ctx context.Context, in CycleInput) (CycleResult, error) {
	if err := ctx.Err(); err != nil {
		return CycleResult{}, err
	}
	start := time.Now()

	profile := AnalyzeMarketConditions(in.Market, in.History)

	signals := m.registry.DetectSignals(DetectionInput{
		Market:   in.Market,
		History:  in.History,
		Profile:  profile,
		Trades:   in.Trades,
		Settings: in.Settings,
	})
	m.store.AppendSignals(signals...)

	actions := DetermineActions(DetermineInput{
		Signals:   signals,
		Trades:    in.Trades,
		Settings:  in.Settings,
		Tolerance: in.RiskTolerance,
		Profile:   profile,
		Insights:  m.store.Snapshot().LearningInsights,
	})
	m.store.AppendActions(actions...)

	result := CycleResult{
		Profile: profile,
		Signals: signals,
		Actions: actions,
		Trades:  in.Trades,
	}
	if in.Apply {
		result.Trades = ApplyActions(actions, in.Trades, in.Options, in.Settings)
		result.Applied = true
	}
	result.Duration = time.Since(start)

	m.logger.Info().
		Str("condition", string(profile.CurrentCondition)).
		Float64("composite_risk", profile.CompositeRiskScore).
		Int("signals", len(signals)).
		Int("actions", len(actions)).
		Bool("applied", result.Applied).
		Dur("duration", result.Duration).
		Msg("Monitoring cycle completed")

	for _, o := range m.observers {
		o.OnCycle(ctx, result)
	}

	return result, nil
}

// Apply executes actions against trades without touching the log
func (m *Monitor) Apply(actions []RiskAction, trades []Trade, options []OptionContract, settings AITradingSettings) []Trade {
	return ApplyActions(actions, trades, options, settings)
}

// Learn derives insights from closed trades and records them. When actions is
// nil the actions already in the log are evaluated.
func (m *Monitor) Learn(ctx context.Context, closedTrades []Trade, actions []RiskAction) ([]LearningInsight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if actions == nil {
		actions = m.store.Snapshot().Actions
	}

	insights := LearnFromOutcomes(closedTrades, actions, m.store)
	m.store.AppendInsights(insights...)

	m.logger.Info().
		Int("closed_trades", len(closedTrades)).
		Int("insights", len(insights)).
		Msg("Learned from trade outcomes")

	if len(insights) > 0 {
		for _, o := range m.insights {
			o.OnInsights(ctx, insights)
		}
	}
	return insights, nil
}

// Recommend returns the ranked actions for a signal based on the logged insights
func (m *Monitor) Recommend(signal RiskSignal) []ActionType {
	return GetRecommendedActions(signal, m.store.Snapshot().LearningInsights)
}

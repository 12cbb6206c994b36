// Package events publishes monitoring output on NATS so downstream services can
// react to risk signals without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/metrics"
	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

// Event kinds. Each kind is published under <prefix>.<kind>s.
const (
	KindCycle   = "cycle"
	KindSignal  = "signal"
	KindAction  = "action"
	KindInsight = "insight"
)

// DefaultSubjectPrefix is used when no prefix is configured
const DefaultSubjectPrefix = "riskmonitor"

// Event is the envelope of every published message
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Subject   string          `json:"subject"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// CycleSummary is the payload of a cycle event
type CycleSummary struct {
	Condition          monitoring.MarketCondition `json:"condition"`
	CompositeRiskScore float64                    `json:"compositeRiskScore"`
	VolatilityLevel    float64                    `json:"volatilityLevel"`
	Signals            int                        `json:"signals"`
	Actions            int                        `json:"actions"`
	Applied            bool                       `json:"applied"`
	DurationMs         float64                    `json:"durationMs"`
}

// Config configures the publisher
type Config struct {
	URL           string
	SubjectPrefix string
	Name          string
}

// Publisher sends monitoring events to NATS
type Publisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
	logger zerolog.Logger
}

// Connect dials NATS and returns a publisher owning the connection
func Connect(cfg Config) (*Publisher, error) {
	if cfg.Name == "" {
		cfg.Name = "riskmonitor"
	}
	nc, err := nats.Connect(
		cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := NewPublisher(nc, cfg.SubjectPrefix)
	p.owned = true
	p.logger.Info().Str("nats_url", cfg.URL).Msg("Event publisher connected")
	return p, nil
}

// NewPublisher wraps an existing connection. The caller keeps ownership of nc.
func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{
		nc:     nc,
		prefix: prefix,
		logger: log.With().Str("component", "events").Str("prefix", prefix).Logger(),
	}
}

// Subject returns the subject for kind, optionally narrowed by a token such as
// the signal source or action type
func (p *Publisher) Subject(kind, token string) string {
	subject := p.prefix + "." + kind + "s"
	if token != "" {
		subject += "." + token
	}
	return subject
}

// Publish wraps payload in an Event and publishes it
func (p *Publisher) Publish(ctx context.Context, kind, token string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.nc.IsConnected() {
		return fmt.Errorf("event publisher not connected")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	subject := p.Subject(kind, token)
	event := Event{
		ID:        uuid.New(),
		Kind:      kind,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   body,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	metrics.RecordEvent(kind)

	p.logger.Debug().
		Str("event_id", event.ID.String()).
		Str("subject", subject).
		Msg("Published event")
	return nil
}

// PublishSignal publishes one signal under <prefix>.signals.<source>
func (p *Publisher) PublishSignal(ctx context.Context, s monitoring.RiskSignal) error {
	return p.Publish(ctx, KindSignal, string(s.Source), s)
}

// PublishAction publishes one action under <prefix>.actions.<action_type>
func (p *Publisher) PublishAction(ctx context.Context, a monitoring.RiskAction) error {
	return p.Publish(ctx, KindAction, string(a.ActionType), a)
}

// PublishInsight publishes one insight under <prefix>.insights.<action_taken>
func (p *Publisher) PublishInsight(ctx context.Context, in monitoring.LearningInsight) error {
	return p.Publish(ctx, KindInsight, string(in.ActionTaken), in)
}

// OnCycle implements monitoring.CycleObserver. Failures are logged, not returned.
func (p *Publisher) OnCycle(ctx context.Context, result monitoring.CycleResult) {
	summary := CycleSummary{
		Condition:          result.Profile.CurrentCondition,
		CompositeRiskScore: result.Profile.CompositeRiskScore,
		VolatilityLevel:    result.Profile.VolatilityLevel,
		Signals:            len(result.Signals),
		Actions:            len(result.Actions),
		Applied:            result.Applied,
		DurationMs:         float64(result.Duration) / float64(time.Millisecond),
	}
	if err := p.Publish(ctx, KindCycle, "", summary); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to publish cycle")
	}
	for _, s := range result.Signals {
		if err := p.PublishSignal(ctx, s); err != nil {
			p.logger.Warn().Err(err).Str("signal_id", s.ID).Msg("Failed to publish signal")
		}
	}
	for _, a := range result.Actions {
		if err := p.PublishAction(ctx, a); err != nil {
			p.logger.Warn().Err(err).Str("action_id", a.ID).Msg("Failed to publish action")
		}
	}
}

// OnInsights implements monitoring.InsightObserver
func (p *Publisher) OnInsights(ctx context.Context, insights []monitoring.LearningInsight) {
	for _, in := range insights {
		if err := p.PublishInsight(ctx, in); err != nil {
			p.logger.Warn().Err(err).Str("insight_id", in.ID).Msg("Failed to publish insight")
		}
	}
}

// Subscribe delivers every event of kind to handler until the subscription is
// drained. Malformed messages are logged and skipped.
func (p *Publisher) Subscribe(kind string, handler func(Event)) (*nats.Subscription, error) {
	subject := p.Subject(kind, ">")
	if kind == KindCycle || kind == KindHeartbeat {
		subject = p.Subject(kind, "")
	}
	sub, err := p.nc.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping malformed event")
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// Flush waits until the server has processed everything published so far
func (p *Publisher) Flush(timeout time.Duration) error {
	return p.nc.FlushTimeout(timeout)
}

// Close drains an owned connection. Borrowed connections are left open.
func (p *Publisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

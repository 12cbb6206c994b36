package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/ajitpratap0/riskmonitor/internal/metrics"
)

// Breaker defaults
const (
	DefaultMaxFailures = 3
	DefaultOpenTimeout = 30 * time.Second
	halfOpenMaxReqs    = 1
)

// BreakerSettings configures a BreakerPersister
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before probing again
	OpenTimeout time.Duration
}

// BreakerPersister stops calling a failing backend until it has had time to recover
type BreakerPersister struct {
	next Persister
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerPersister wraps next with a circuit breaker
func NewBreakerPersister(next Persister, settings BreakerSettings) *BreakerPersister {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = DefaultMaxFailures
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultOpenTimeout
	}

	name := next.Name()
	b := &BreakerPersister{next: next}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpenMaxReqs,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("backend", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Persistence circuit breaker state changed")
			metrics.UpdateCircuitBreaker(name, int(to))
		},
	})
	metrics.UpdateCircuitBreaker(name, int(b.cb.State()))
	return b
}

// Name implements Persister
func (b *BreakerPersister) Name() string { return b.next.Name() }

// State returns the breaker state
func (b *BreakerPersister) State() gobreaker.State { return b.cb.State() }

// Save implements Persister
func (b *BreakerPersister) Save(ctx context.Context, data []byte) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Save(ctx, data)
	})
	return err
}

// Load implements Persister
func (b *BreakerPersister) Load(ctx context.Context) ([]byte, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Load(ctx)
	})
	if err != nil {
		return nil, err
	}
	data, _ := out.([]byte)
	return data, nil
}

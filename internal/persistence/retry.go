package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/metrics"
)

// RetrySettings configures a RetryPersister
type RetrySettings struct {
	MaxRetries     int           // Retries after the first attempt
	InitialBackoff time.Duration // Wait before the first retry
	MaxBackoff     time.Duration // Upper bound for a single wait
	BackoffFactor  float64       // Multiplier applied after each retry
}

// DefaultRetrySettings returns default retry settings
func DefaultRetrySettings() RetrySettings {
	return RetrySettings{
		MaxRetries:     2,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,
	}
}

// IsRetryable reports whether a backend error is likely transient
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, transient := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"temporary failure",
		"too many connections",
		"eof",
	} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}

// RetryPersister retries transient failures of a remote backend with
// exponential backoff
type RetryPersister struct {
	next     Persister
	settings RetrySettings
}

// NewRetryPersister wraps next. Zero settings fields use the defaults.
func NewRetryPersister(next Persister, settings RetrySettings) *RetryPersister {
	defaults := DefaultRetrySettings()
	if settings.MaxRetries < 0 {
		settings.MaxRetries = 0
	}
	if settings.InitialBackoff <= 0 {
		settings.InitialBackoff = defaults.InitialBackoff
	}
	if settings.MaxBackoff <= 0 {
		settings.MaxBackoff = defaults.MaxBackoff
	}
	if settings.BackoffFactor < 1 {
		settings.BackoffFactor = defaults.BackoffFactor
	}
	return &RetryPersister{next: next, settings: settings}
}

// Name implements Persister
func (r *RetryPersister) Name() string { return r.next.Name() }

// Save implements Persister
func (r *RetryPersister) Save(ctx context.Context, data []byte) error {
	return r.do(ctx, metrics.OperationSave, func() error {
		return r.next.Save(ctx, data)
	})
}

// Load implements Persister
func (r *RetryPersister) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := r.do(ctx, metrics.OperationLoad, func() error {
		var err error
		data, err = r.next.Load(ctx)
		return err
	})
	return data, err
}

func (r *RetryPersister) do(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	backoff := r.settings.InitialBackoff

	for attempt := 0; attempt <= r.settings.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				log.Info().
					Str("backend", r.next.Name()).
					Str("operation", operation).
					Int("attempt", attempt+1).
					Msg("Persistence operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == r.settings.MaxRetries {
			break
		}

		log.Warn().
			Err(err).
			Str("backend", r.next.Name()).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Int("max_attempts", r.settings.MaxRetries+1).
			Dur("backoff", backoff).
			Msg("Persistence operation failed, retrying with backoff")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled during backoff: %w", operation, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * r.settings.BackoffFactor)
		if backoff > r.settings.MaxBackoff {
			backoff = r.settings.MaxBackoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, r.settings.MaxRetries+1, lastErr)
}

package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

const defaultSaveTimeout = 10 * time.Second

// Snapshotter keeps a LogStore and a Persister in step: it restores the log at
// start and saves an export after every cycle and every learning run.
type Snapshotter struct {
	saveMu    sync.Mutex
	store     monitoring.LogStore
	persister Persister
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewSnapshotter creates a snapshotter for store backed by persister
func NewSnapshotter(store monitoring.LogStore, persister Persister) *Snapshotter {
	return &Snapshotter{
		store:     store,
		persister: persister,
		timeout:   defaultSaveTimeout,
		logger:    log.With().Str("component", "snapshotter").Str("backend", persister.Name()).Logger(),
	}
}

// Restore imports the persisted snapshot. A missing snapshot leaves the store
// untouched and is not an error.
func (s *Snapshotter) Restore(ctx context.Context) error {
	data, err := s.persister.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		s.logger.Info().Msg("No persisted monitoring log, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load monitoring log: %w", err)
	}
	if err := s.store.Import(data); err != nil {
		return fmt.Errorf("failed to restore monitoring log: %w", err)
	}

	snap := s.store.Snapshot()
	s.logger.Info().
		Int("signals", len(snap.Signals)).
		Int("actions", len(snap.Actions)).
		Int("insights", len(snap.LearningInsights)).
		Msg("Monitoring log restored")
	return nil
}

// Save exports the store and persists it. Saves are serialized so an older
// export never lands after a newer one.
func (s *Snapshotter) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := s.store.Export()
	if err != nil {
		return fmt.Errorf("failed to export monitoring log: %w", err)
	}
	if err := s.persister.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to persist monitoring log: %w", err)
	}
	s.logger.Debug().Int("bytes", len(data)).Msg("Monitoring log saved")
	return nil
}

// OnCycle implements monitoring.CycleObserver
func (s *Snapshotter) OnCycle(ctx context.Context, _ monitoring.CycleResult) {
	s.saveQuietly(ctx)
}

// OnInsights implements monitoring.InsightObserver
func (s *Snapshotter) OnInsights(ctx context.Context, _ []monitoring.LearningInsight) {
	s.saveQuietly(ctx)
}

// saveQuietly detaches from the caller's cancellation so a finished HTTP request
// does not abort the save
func (s *Snapshotter) saveQuietly(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.Save(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save monitoring log")
	}
}

package metrics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

// PoolStatter is satisfied by *pgxpool.Pool
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

// Updater periodically refreshes gauges that are not driven by cycle events:
// monitoring log sizes and database pool usage.
type Updater struct {
	store    monitoring.LogStore
	pool     PoolStatter
	interval time.Duration
	stopCh   chan struct{}
}

// NewUpdater creates a new metrics updater. pool may be nil.
func NewUpdater(store monitoring.LogStore, pool PoolStatter, interval time.Duration) *Updater {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Updater{
		store:    store,
		pool:     pool,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the update loop until Stop is called or ctx is done
func (u *Updater) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.update()

	for {
		select {
		case <-ticker.C:
			u.update()
		case <-u.stopCh:
			log.Info().Msg("Metrics updater stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Metrics updater context cancelled")
			return
		}
	}
}

// Stop stops the metrics updater
func (u *Updater) Stop() {
	close(u.stopCh)
}

func (u *Updater) update() {
	if u.store != nil {
		snap := u.store.Snapshot()
		UpdateLogEntries(len(snap.Signals), len(snap.Actions), len(snap.LearningInsights))
	}
	if u.pool != nil {
		if stat := u.pool.Stat(); stat != nil {
			UpdateDatabaseConnections(stat.AcquiredConns(), stat.IdleConns())
		}
	}
	log.Debug().Msg("Metrics updated")
}

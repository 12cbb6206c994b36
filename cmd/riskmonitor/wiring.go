package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/alerts"
	"github.com/ajitpratap0/riskmonitor/internal/api"
	"github.com/ajitpratap0/riskmonitor/internal/cache"
	"github.com/ajitpratap0/riskmonitor/internal/config"
	"github.com/ajitpratap0/riskmonitor/internal/db"
	"github.com/ajitpratap0/riskmonitor/internal/events"
	"github.com/ajitpratap0/riskmonitor/internal/metrics"
	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
	"github.com/ajitpratap0/riskmonitor/internal/persistence"
)

// backends holds the opened persistence backends and what is needed to close them
type backends struct {
	persister persistence.Persister
	checks    map[string]api.HealthCheck
	database  *db.DB
	closers   []func()
}

// Close releases every backend connection
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends builds the persister chain for cfg.Persistence.Backends. Every
// backend is instrumented; remote backends also retry and sit behind a circuit breaker.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{checks: make(map[string]api.HealthCheck)}
	breaker := persistence.BreakerSettings{
		MaxFailures: cfg.Persistence.Breaker.MaxFailures,
		OpenTimeout: cfg.Persistence.Breaker.GetTimeout(),
	}
	retry := persistence.DefaultRetrySettings()
	retry.MaxRetries = cfg.Persistence.Retries

	// remote wraps a network backend: retries inside the breaker, metrics outside
	remote := func(p persistence.Persister) persistence.Persister {
		return persistence.WithMetrics(persistence.NewBreakerPersister(persistence.NewRetryPersister(p, retry), breaker))
	}

	var persisters []persistence.Persister
	for _, name := range cfg.Persistence.Backends {
		switch strings.ToLower(name) {
		case config.BackendFile:
			persisters = append(persisters, persistence.WithMetrics(persistence.NewFilePersister(cfg.Persistence.FilePath)))

		case config.BackendRedis:
			client := cache.NewClient(cfg.Redis)
			redisPersister := cache.NewRedisLogPersister(client, cfg.Redis.Key, cache.WithTTL(cfg.Redis.GetTTL()))
			b.closers = append(b.closers, func() { _ = client.Close() })
			b.checks[config.BackendRedis] = redisPersister.Ping
			persisters = append(persisters, remote(redisPersister))

		case config.BackendPostgres:
			database, err := db.New(ctx, cfg.Database)
			if err != nil {
				b.Close()
				return nil, fmt.Errorf("failed to open postgres backend: %w", err)
			}
			b.database = database
			b.closers = append(b.closers, database.Close)
			b.checks[config.BackendPostgres] = database.Health
			repo := db.NewSnapshotRepository(database.Pool(), db.DefaultRetention)
			persisters = append(persisters, remote(repo))

		default:
			b.Close()
			return nil, fmt.Errorf("unknown persistence backend %q", name)
		}
	}

	switch len(persisters) {
	case 0:
		b.Close()
		return nil, fmt.Errorf("no persistence backend configured")
	case 1:
		b.persister = persisters[0]
	default:
		b.persister = persistence.NewMultiPersister(persisters...)
	}

	log.Debug().Str("persister", b.persister.Name()).Msg("Persistence backends opened")
	return b, nil
}

// pipeline is a monitor with its log restored and its observers attached
type pipeline struct {
	monitor     *monitoring.Monitor
	store       *monitoring.MemoryLogStore
	snapshotter *persistence.Snapshotter
	publisher   *events.Publisher
}

// Close flushes and closes the event publisher
func (p *pipeline) Close() {
	if p.publisher != nil {
		if err := p.publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}
}

// newPipeline restores the monitoring log from b and wires metrics, persistence,
// events and alerts as configured
func newPipeline(ctx context.Context, cfg *config.Config, b *backends) (*pipeline, error) {
	store := monitoring.NewMemoryLogStore()
	snapshotter := persistence.NewSnapshotter(store, b.persister)
	if err := snapshotter.Restore(ctx); err != nil {
		return nil, err
	}

	p := &pipeline{store: store, snapshotter: snapshotter}
	opts := []monitoring.Option{
		monitoring.WithObserver(metrics.NewRecorder(store)),
		monitoring.WithObserver(snapshotter),
	}

	if cfg.NATS.Enabled {
		publisher, err := events.Connect(events.Config{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			Name:          cfg.App.Name,
		})
		if err != nil {
			return nil, err
		}
		p.publisher = publisher
		opts = append(opts, monitoring.WithObserver(publisher))
	}

	if cfg.Alerts.Enabled {
		opts = append(opts, monitoring.WithObserver(newRiskAlerter(cfg.Alerts)))
	}

	p.monitor = monitoring.NewMonitor(store, opts...)
	return p, nil
}

// newRiskAlerter sends risk alerts to the log and, when configured, to Telegram
func newRiskAlerter(cfg config.AlertsConfig) *alerts.RiskAlerter {
	manager := alerts.NewManager(alerts.NewLogAlerter())

	if cfg.Telegram.Enabled {
		telegram, err := alerts.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram alerts disabled")
		} else {
			floor, err := alerts.ParseSeverity(cfg.Telegram.MinSeverity)
			if err != nil {
				floor = alerts.SeverityWarning
			}
			manager.Route(telegram, floor)
		}
	}

	return alerts.NewRiskAlerter(manager, alerts.RiskPolicy{
		MinConfidence: cfg.MinConfidence,
		PerMinute:     cfg.PerMinute,
	})
}

// cycleDefaults are the configured values a snapshot may omit
func cycleDefaults(cfg *config.Config) monitoring.CycleInput {
	return monitoring.CycleInput{
		Settings:      cfg.Monitoring.Settings,
		RiskTolerance: cfg.Monitoring.Tolerance(),
		Apply:         cfg.Monitoring.AutoApply,
	}
}

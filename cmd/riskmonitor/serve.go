package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/riskmonitor/internal/api"
	"github.com/ajitpratap0/riskmonitor/internal/config"
	"github.com/ajitpratap0/riskmonitor/internal/events"
	"github.com/ajitpratap0/riskmonitor/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the serve command
func newServeCmd(a *app) *cobra.Command {
	var skipConnectivity bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API and metrics servers",
		Long: `Start the REST API and the Prometheus metrics server. The monitoring log is
restored from the configured persistence backends at start, saved after every
cycle and saved once more on shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := config.DefaultValidatorOptions()
			opts.VerifyConnectivity = !skipConnectivity
			if err := config.NewValidator(a.cfg, opts).ValidateStartup(ctx); err != nil {
				return fmt.Errorf("startup validation failed: %w", err)
			}

			return serve(ctx, a.cfg)
		},
	}

	cmd.Flags().BoolVar(&skipConnectivity, "skip-connectivity-check", false, "Do not verify backend connectivity at startup")

	return cmd
}

// serve runs until ctx is done
func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Strs("backends", cfg.Persistence.Backends).
		Msg("Starting RiskMonitor")

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := newPipeline(ctx, cfg, b)
	if err != nil {
		return err
	}
	defer p.Close()

	server := api.NewServer(api.Config{
		Host:           cfg.API.Host,
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
		Version:        cfg.App.Version,
		ExposeMetrics:  !cfg.Metrics.Enabled,
		Settings:       cfg.Monitoring.Settings,
		RiskTolerance:  cfg.Monitoring.Tolerance(),
		AutoApply:      cfg.Monitoring.AutoApply,
	}, p.monitor)
	for name, check := range b.checks {
		server.AddHealthCheck(name, check)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, config.NewLogger("metrics"))
		if err := metricsServer.Start(); err != nil {
			return err
		}

		var pool metrics.PoolStatter
		if b.database != nil {
			pool = b.database.Pool()
		}
		updater := metrics.NewUpdater(p.store, pool, 0)
		go updater.Start(ctx)
		defer updater.Stop()
	}

	if err := server.Start(); err != nil {
		return err
	}

	if p.publisher != nil && cfg.NATS.HeartbeatSeconds > 0 {
		heartbeat := events.NewHeartbeatPublisher(p.publisher, p.store, "riskmonitor", cfg.App.Version, cfg.NATS.GetHeartbeatInterval())
		heartbeat.Start(ctx)
		defer heartbeat.Stop()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop API server gracefully")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server gracefully")
		}
	}

	if err := p.snapshotter.Save(shutdownCtx); err != nil {
		return fmt.Errorf("failed to save monitoring log on shutdown: %w", err)
	}

	log.Info().Msg("RiskMonitor stopped")
	return nil
}

package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ValidatorOptions contains options for startup validation
type ValidatorOptions struct {
	VerifyConnectivity bool          // probe every enabled backend
	Timeout            time.Duration // per probe
}

// DefaultValidatorOptions returns default validator options for startup
func DefaultValidatorOptions() ValidatorOptions {
	return ValidatorOptions{
		VerifyConnectivity: true,
		Timeout:            5 * time.Second,
	}
}

// probe checks that one external dependency answers
type probe struct {
	name  string
	check func(ctx context.Context) error
}

// Validator checks a configuration before the server starts
type Validator struct {
	config  *Config
	options ValidatorOptions
}

// NewValidator creates a new startup validator
func NewValidator(config *Config, options ValidatorOptions) *Validator {
	if options.Timeout <= 0 {
		options.Timeout = DefaultValidatorOptions().Timeout
	}
	return &Validator{
		config:  config,
		options: options,
	}
}

// ValidateStartup validates the configuration and, when VerifyConnectivity is
// set, probes every enabled backend concurrently. The first failing probe is
// returned.
func (v *Validator) ValidateStartup(ctx context.Context) error {
	if err := v.config.Validate(); err != nil {
		return err
	}
	if !v.options.VerifyConnectivity {
		log.Debug().Msg("Skipping connectivity checks")
		return nil
	}

	probes := v.probes()
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range probes {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, v.options.Timeout)
			defer cancel()

			start := time.Now()
			if err := p.check(probeCtx); err != nil {
				return fmt.Errorf("%s connectivity check failed: %w", p.name, err)
			}
			log.Info().
				Str("backend", p.name).
				Dur("latency", time.Since(start)).
				Msg("Connectivity check passed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Int("probes", len(probes)).Msg("Startup validation passed")
	return nil
}

// probes lists the checks for the enabled backends
func (v *Validator) probes() []probe {
	var probes []probe
	if v.config.Database.Enabled {
		probes = append(probes, probe{name: "database", check: v.pingDatabase})
	}
	if v.config.Redis.Enabled {
		probes = append(probes, probe{name: "redis", check: v.pingRedis})
	}
	if v.config.NATS.Enabled {
		probes = append(probes, probe{name: "nats", check: v.pingNATS})
	}
	return probes
}

func (v *Validator) pingDatabase(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, v.config.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to create database connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database at %s:%d: %w", v.config.Database.Host, v.config.Database.Port, err)
	}
	return nil
}

func (v *Validator) pingRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     v.config.Redis.GetRedisAddr(),
		Password: v.config.Redis.Password,
		DB:       v.config.Redis.DB,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis at %s: %w", v.config.Redis.GetRedisAddr(), err)
	}
	return nil
}

func (v *Validator) pingNATS(ctx context.Context) error {
	timeout := v.options.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	nc, err := nats.Connect(v.config.NATS.URL, nats.Timeout(timeout), nats.NoReconnect())
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", v.config.NATS.URL, err)
	}
	defer nc.Close()

	if err := nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("NATS did not answer: %w", err)
	}
	return nil
}

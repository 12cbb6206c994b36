// Package cache persists monitoring log snapshots in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/config"
	"github.com/ajitpratap0/riskmonitor/internal/persistence"
)

const (
	// DefaultKey is used when no key is configured
	DefaultKey = "riskmonitor:log"
	// DefaultHistory is the number of previous snapshots kept under <key>:history
	DefaultHistory = 5

	opTimeout = 2 * time.Second
)

// RedisLogPersister stores the latest exported monitoring log under one key and
// keeps a short history list of previous snapshots next to it
type RedisLogPersister struct {
	client  redis.UniversalClient
	key     string
	ttl     time.Duration
	history int64
}

// Option configures a RedisLogPersister
type Option func(*RedisLogPersister)

// WithTTL expires snapshots after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(p *RedisLogPersister) { p.ttl = ttl }
}

// WithHistory keeps n previous snapshots. Zero disables the history list.
func WithHistory(n int) Option {
	return func(p *RedisLogPersister) { p.history = int64(n) }
}

// NewRedisLogPersister creates a persister writing to key
func NewRedisLogPersister(client redis.UniversalClient, key string, opts ...Option) *RedisLogPersister {
	if key == "" {
		key = DefaultKey
	}
	p := &RedisLogPersister{
		client:  client,
		key:     key,
		history: DefaultHistory,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewClient creates a Redis client from configuration
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Name implements persistence.Persister
func (p *RedisLogPersister) Name() string { return config.BackendRedis }

// Key returns the key holding the latest snapshot
func (p *RedisLogPersister) Key() string { return p.key }

func (p *RedisLogPersister) historyKey() string { return p.key + ":history" }

// Save writes the snapshot and pushes it onto the history list in one transaction
func (p *RedisLogPersister) Save(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.key, data, p.ttl)
		if p.history > 0 {
			pipe.LPush(ctx, p.historyKey(), data)
			pipe.LTrim(ctx, p.historyKey(), 0, p.history-1)
			if p.ttl > 0 {
				pipe.Expire(ctx, p.historyKey(), p.ttl)
			}
		}
		return nil
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("key", p.key).
			Msg("Failed to save monitoring log to Redis")
		return fmt.Errorf("redis save: %w", err)
	}

	log.Debug().
		Str("key", p.key).
		Int("bytes", len(data)).
		Dur("ttl", p.ttl).
		Msg("Saved monitoring log to Redis")
	return nil
}

// Load reads the latest snapshot
func (p *RedisLogPersister) Load(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load: %w", err)
	}
	return data, nil
}

// History returns up to the configured number of previous snapshots, newest first
func (p *RedisLogPersister) History(ctx context.Context) ([][]byte, error) {
	if p.history <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	items, err := p.client.LRange(ctx, p.historyKey(), 0, p.history-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis history: %w", err)
	}
	out := make([][]byte, len(items))
	for i, item := range items {
		out[i] = []byte(item)
	}
	return out, nil
}

// Clear removes the snapshot and its history
func (p *RedisLogPersister) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := p.client.Del(ctx, p.key, p.historyKey()).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

// Ping checks the connection
func (p *RedisLogPersister) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

// KindHeartbeat events are published under <prefix>.heartbeats
const KindHeartbeat = "heartbeat"

// DefaultHeartbeatInterval is used when no interval is configured
const DefaultHeartbeatInterval = 30 * time.Second

// Heartbeat is the payload of a heartbeat event
type Heartbeat struct {
	Service  string  `json:"service"`
	Version  string  `json:"version"`
	Status   string  `json:"status"`
	Uptime   float64 `json:"uptimeSeconds"`
	Signals  int     `json:"signals"`
	Actions  int     `json:"actions"`
	Insights int     `json:"insights"`
}

// HeartbeatPublisher periodically announces that the monitor is alive, with
// the current log sizes
type HeartbeatPublisher struct {
	publisher *Publisher
	store     monitoring.LogStore
	service   string
	version   string
	interval  time.Duration
	started   time.Time
	running   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	logger    zerolog.Logger
}

// NewHeartbeatPublisher creates a heartbeat loop over publisher. interval <= 0
// uses DefaultHeartbeatInterval.
func NewHeartbeatPublisher(publisher *Publisher, store monitoring.LogStore, service, version string, interval time.Duration) *HeartbeatPublisher {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &HeartbeatPublisher{
		publisher: publisher,
		store:     store,
		service:   service,
		version:   version,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		logger:    publisher.logger.With().Str("component", "heartbeat").Logger(),
	}
}

// Start publishes one heartbeat immediately and then one per interval until
// Stop is called or ctx is done
func (h *HeartbeatPublisher) Start(ctx context.Context) {
	if !h.running.CompareAndSwap(false, true) {
		h.logger.Warn().Msg("Heartbeat publisher already running")
		return
	}
	h.started = time.Now()

	go func() {
		defer close(h.doneCh)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		h.PublishWithStatus(ctx, "healthy")
		for {
			select {
			case <-ticker.C:
				h.PublishWithStatus(ctx, "healthy")
			case <-h.stopCh:
				h.PublishWithStatus(context.WithoutCancel(ctx), "stopping")
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	h.logger.Info().Dur("interval", h.interval).Msg("Heartbeat publishing started")
}

// Stop publishes a final "stopping" heartbeat and waits for the loop to exit
func (h *HeartbeatPublisher) Stop() {
	if !h.running.CompareAndSwap(true, false) {
		return
	}
	close(h.stopCh)
	<-h.doneCh
	h.logger.Info().Msg("Heartbeat publishing stopped")
}

// IsRunning returns whether the heartbeat loop is running
func (h *HeartbeatPublisher) IsRunning() bool {
	return h.running.Load()
}

// PublishWithStatus publishes a single heartbeat with status
func (h *HeartbeatPublisher) PublishWithStatus(ctx context.Context, status string) {
	beat := Heartbeat{
		Service: h.service,
		Version: h.version,
		Status:  status,
	}
	if !h.started.IsZero() {
		beat.Uptime = time.Since(h.started).Seconds()
	}
	if h.store != nil {
		snap := h.store.Snapshot()
		beat.Signals = len(snap.Signals)
		beat.Actions = len(snap.Actions)
		beat.Insights = len(snap.LearningInsights)
	}

	if err := h.publisher.Publish(ctx, KindHeartbeat, "", beat); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to publish heartbeat")
	}
}

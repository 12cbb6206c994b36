package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

func TestHeartbeatPublisher(t *testing.T) {
	p := setupPublisher(t)

	var got collector
	sub, err := p.Subscribe(KindHeartbeat, got.add)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, p.Flush(time.Second))

	store := monitoring.NewMemoryLogStore()
	store.AppendSignals(monitoring.RiskSignal{ID: "s1"}, monitoring.RiskSignal{ID: "s2"})
	store.AppendActions(monitoring.RiskAction{ID: "a1"})

	hb := NewHeartbeatPublisher(p, store, "riskmonitor", "1.2.3", 20*time.Millisecond)
	hb.Start(context.Background())
	assert.True(t, hb.IsRunning())

	require.Eventually(t, func() bool { return got.len() >= 2 }, 2*time.Second, 10*time.Millisecond)
	hb.Stop()
	assert.False(t, hb.IsRunning())

	first := got.all()[0]
	assert.Equal(t, "test.risk.heartbeats", first.Subject)
	assert.Equal(t, KindHeartbeat, first.Kind)

	var beat Heartbeat
	require.NoError(t, json.Unmarshal(first.Payload, &beat))
	assert.Equal(t, "riskmonitor", beat.Service)
	assert.Equal(t, "1.2.3", beat.Version)
	assert.Equal(t, "healthy", beat.Status)
	assert.Equal(t, 2, beat.Signals)
	assert.Equal(t, 1, beat.Actions)
	assert.Equal(t, 0, beat.Insights)

	require.Eventually(t, func() bool {
		events := got.all()
		var last Heartbeat
		if err := json.Unmarshal(events[len(events)-1].Payload, &last); err != nil {
			return false
		}
		return last.Status == "stopping"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHeartbeatPublisherDefaults(t *testing.T) {
	hb := NewHeartbeatPublisher(NewPublisher(nil, ""), nil, "riskmonitor", "dev", 0)
	assert.Equal(t, DefaultHeartbeatInterval, hb.interval)

	// Stop without Start is a no-op
	hb.Stop()
	assert.False(t, hb.IsRunning())
}

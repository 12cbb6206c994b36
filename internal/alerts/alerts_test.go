package alerts

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAlerter records alerts for testing
type mockAlerter struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (m *mockAlerter) Send(ctx context.Context, alert Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return m.err
}

func (m *mockAlerter) sent() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...)
}

func TestManagerSend(t *testing.T) {
	first := &mockAlerter{}
	second := &mockAlerter{}
	manager := NewManager(first, second)
	assert.Equal(t, 2, manager.Len())

	require.NoError(t, manager.Send(context.Background(), Alert{
		Title:    "VIX spike",
		Message:  "VIX jumped 20%",
		Severity: SeverityWarning,
		Metadata: map[string]interface{}{"vix": 42.0},
	}))

	require.Len(t, first.sent(), 1)
	require.Len(t, second.sent(), 1)
	alert := first.sent()[0]
	assert.Equal(t, SeverityWarning, alert.Severity)
	assert.Equal(t, "VIX spike", alert.Title)
	assert.False(t, alert.Timestamp.IsZero(), "timestamp is filled in")
}

func TestManagerSendContinuesAfterFailure(t *testing.T) {
	failing := &mockAlerter{err: errors.New("chat unavailable")}
	working := &mockAlerter{}
	manager := NewManager(failing, working)

	err := manager.Send(context.Background(), Alert{Title: "Exit", Message: "exit now", Severity: SeverityCritical})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat unavailable")
	assert.Len(t, working.sent(), 1)
}

func TestManagerRoutesBySeverity(t *testing.T) {
	everything := &mockAlerter{}
	urgent := &mockAlerter{}
	manager := NewManager(everything)
	manager.Route(urgent, SeverityWarning)
	ctx := context.Background()

	for _, s := range []Severity{SeverityInfo, SeverityWarning, SeverityCritical} {
		require.NoError(t, manager.Send(ctx, Alert{Title: string(s), Severity: s}))
	}

	assert.Len(t, everything.sent(), 3)
	sent := urgent.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []Severity{SeverityWarning, SeverityCritical},
		[]Severity{sent[0].Severity, sent[1].Severity})
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity(" warning ")
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, s)

	_, err = ParseSeverity("loud")
	assert.Error(t, err)

	assert.True(t, SeverityCritical.AtLeast(SeverityWarning))
	assert.False(t, SeverityInfo.AtLeast(SeverityWarning))
}

func TestLogAlerter(t *testing.T) {
	original := log.Logger
	defer func() { log.Logger = original }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	err := NewLogAlerter().Send(context.Background(), Alert{
		Title:     "Extreme volatility",
		Message:   "VIX at 42",
		Severity:  SeverityCritical,
		Timestamp: time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
		Metadata:  map[string]interface{}{"signal_id": "s1"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"alert_title":"Extreme volatility"`)
	assert.Contains(t, out, `"signal_id":"s1"`)
	assert.Contains(t, out, "ALERT: VIX at 42")
}

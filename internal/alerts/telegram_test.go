package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI answers getMe and sendMessage like the Telegram Bot API
type fakeBotAPI struct {
	mu       sync.Mutex
	messages map[string]string
	failChat string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = r.ParseForm()

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Risk","username":"risk_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		chatID := r.FormValue("chat_id")
		if chatID == f.failChat {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		f.mu.Lock()
		f.messages[chatID] = r.FormValue("text")
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": map[string]interface{}{
				"message_id": 1,
				"date":       0,
				"chat":       map[string]interface{}{"id": 1, "type": "private"},
				"text":       r.FormValue("text"),
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBotAPI) received() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.messages))
	for k, v := range f.messages {
		out[k] = v
	}
	return out
}

func newFakeTelegram(t *testing.T, chatIDs []int64, failChat string) (*TelegramAlerter, *fakeBotAPI) {
	t.Helper()
	fake := &fakeBotAPI{messages: map[string]string{}, failChat: failChat}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	alerter, err := NewTelegramAlerterWithEndpoint("123:abc", srv.URL+"/bot%s/%s", chatIDs)
	require.NoError(t, err)
	return alerter, fake
}

func TestNewTelegramAlerterRequiresToken(t *testing.T) {
	_, err := NewTelegramAlerter("", []int64{1})
	assert.ErrorContains(t, err, "bot token is required")
}

func TestTelegramAlerterSend(t *testing.T) {
	alerter, fake := newFakeTelegram(t, []int64{42, 43}, "")

	err := alerter.Send(context.Background(), Alert{
		Title:     "Exit recommended",
		Message:   "Extreme bearish volatility",
		Severity:  SeverityCritical,
		Timestamp: time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
		Metadata:  map[string]interface{}{"trades": 2},
	})
	require.NoError(t, err)

	got := fake.received()
	require.Len(t, got, 2)
	assert.Contains(t, got["42"], "*Exit recommended*")
	assert.Contains(t, got["42"], "• trades: `2`")
	assert.Contains(t, got["43"], "_Time: 2024-03-01 16:00:00_")
}

func TestTelegramAlerterPartialFailure(t *testing.T) {
	alerter, fake := newFakeTelegram(t, []int64{42, 99}, "99")

	require.NoError(t, alerter.Send(context.Background(), Alert{Title: "t", Severity: SeverityWarning}))
	assert.Len(t, fake.received(), 1)
}

func TestTelegramAlerterAllChatsFail(t *testing.T) {
	alerter, _ := newFakeTelegram(t, []int64{99}, "99")

	err := alerter.Send(context.Background(), Alert{Title: "t"})
	assert.ErrorContains(t, err, "failed to send alert to any chat")
}

func TestTelegramAlerterNoChats(t *testing.T) {
	alerter, fake := newFakeTelegram(t, nil, "")

	assert.NoError(t, alerter.Send(context.Background(), Alert{Title: "t"}))
	assert.Empty(t, fake.received())
}

func TestTelegramAlerterChatIDs(t *testing.T) {
	alerter := &TelegramAlerter{chatIDs: []int64{1}}

	alerter.AddChatID(2)
	alerter.AddChatID(2)
	assert.Equal(t, []int64{1, 2}, alerter.GetChatIDs())

	alerter.RemoveChatID(1)
	alerter.RemoveChatID(7)
	assert.Equal(t, []int64{2}, alerter.GetChatIDs())
}

func TestFormatAlertSortsMetadata(t *testing.T) {
	msg := formatAlert(Alert{
		Title:    "t",
		Message:  "m",
		Severity: SeverityInfo,
		Metadata: map[string]interface{}{"b": 2, "a": 1},
	})
	assert.Less(t, strings.Index(msg, "• a:"), strings.Index(msg, "• b:"))
	assert.True(t, strings.HasPrefix(msg, "ℹ️ *t*"))
}

package alerts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramAlerter sends alerts via Telegram bot
type TelegramAlerter struct {
	api     *tgbotapi.BotAPI
	mu      sync.RWMutex
	chatIDs []int64
}

// NewTelegramAlerter creates a new Telegram-based alerter
func NewTelegramAlerter(botToken string, chatIDs []int64) (*TelegramAlerter, error) {
	return NewTelegramAlerterWithEndpoint(botToken, tgbotapi.APIEndpoint, chatIDs)
}

// NewTelegramAlerterWithEndpoint creates an alerter talking to a custom Bot API
// endpoint (format "https://host/bot%s/%s")
func NewTelegramAlerterWithEndpoint(botToken, endpoint string, chatIDs []int64) (*TelegramAlerter, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	log.Info().
		Str("bot_username", api.Self.UserName).
		Int("chat_count", len(chatIDs)).
		Msg("Telegram alerter initialized")

	return &TelegramAlerter{
		api:     api,
		chatIDs: append([]int64(nil), chatIDs...),
	}, nil
}

// Send sends an alert to every configured chat. It fails only when no chat received it.
func (t *TelegramAlerter) Send(ctx context.Context, alert Alert) error {
	chatIDs := t.GetChatIDs()
	if len(chatIDs) == 0 {
		log.Warn().Msg("No Telegram chat IDs configured, skipping alert")
		return nil
	}

	message := formatAlert(alert)

	var lastErr error
	successCount := 0

	for _, chatID := range chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(chatID, message)
		msg.ParseMode = tgbotapi.ModeMarkdown

		if _, err := t.api.Send(msg); err != nil {
			log.Error().
				Err(err).
				Int64("chat_id", chatID).
				Str("alert_title", alert.Title).
				Msg("Failed to send Telegram alert")
			lastErr = err
			continue
		}

		successCount++
	}

	if successCount == 0 && lastErr != nil {
		return fmt.Errorf("failed to send alert to any chat: %w", lastErr)
	}

	log.Debug().
		Int("success_count", successCount).
		Int("total_chats", len(chatIDs)).
		Str("alert_title", alert.Title).
		Msg("Telegram alert sent")

	return nil
}

// formatAlert renders an alert as Telegram Markdown. Metadata keys are sorted.
func formatAlert(alert Alert) string {
	var marker string
	switch alert.Severity {
	case SeverityCritical:
		marker = "🚨"
	case SeverityWarning:
		marker = "⚠️"
	case SeverityInfo:
		marker = "ℹ️"
	default:
		marker = "📢"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n%s", marker, alert.Title, alert.Message)

	if len(alert.Metadata) > 0 {
		keys := make([]string, 0, len(alert.Metadata))
		for k := range alert.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n\n*Details:*")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n• %s: `%v`", k, alert.Metadata[k])
		}
	}

	fmt.Fprintf(&b, "\n\n_Time: %s_", alert.Timestamp.Format("2006-01-02 15:04:05"))
	return b.String()
}

// AddChatID adds a chat ID to the alerter
func (t *TelegramAlerter) AddChatID(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.chatIDs {
		if id == chatID {
			return
		}
	}
	t.chatIDs = append(t.chatIDs, chatID)
}

// RemoveChatID removes a chat ID from the alerter
func (t *TelegramAlerter) RemoveChatID(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, id := range t.chatIDs {
		if id == chatID {
			t.chatIDs = append(t.chatIDs[:i], t.chatIDs[i+1:]...)
			return
		}
	}
}

// GetChatIDs returns a copy of the configured chat IDs
func (t *TelegramAlerter) GetChatIDs() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]int64(nil), t.chatIDs...)
}

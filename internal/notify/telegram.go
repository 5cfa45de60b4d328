package notify

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/hypertrack/internal/metrics"
)

const (
	sendAttempts = 3
	sendBackoff  = 2 * time.Second
)

// Telegram delivers alerts to a single chat. Messages use HTML parse mode.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates the bot and verifies the token against the API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")
	return &Telegram{api: api, chatID: chatID}, nil
}

// Send delivers one message, retrying transient failures with a linear
// backoff. Delivery failure is reported, never fatal.
func (t *Telegram) Send(text string) bool {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	for attempt := 1; attempt <= sendAttempts; attempt++ {
		_, err := t.api.Send(msg)
		if err == nil {
			metrics.AlertsSent.WithLabelValues("ok").Inc()
			return true
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Telegram send failed")
		if attempt < sendAttempts {
			time.Sleep(sendBackoff * time.Duration(attempt))
		}
	}
	metrics.AlertsSent.WithLabelValues("error").Inc()
	return false
}

// Logger is a stand-in notifier for dry runs: alerts go to the log only.
type Logger struct{}

func (Logger) Send(text string) bool {
	log.Info().Msg(text)
	metrics.AlertsSent.WithLabelValues("dry_run").Inc()
	return true
}

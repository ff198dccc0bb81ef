// Package tg sends sync run summaries to a Telegram chat.
package tg

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/canvas-bridge/internal/observability"
)

// Telegram caps a message at 4096 characters.
const maxMessageLen = 4096

// 5xx, 429 and timeouts are system errors worth reporting; 400s are not.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "429") || strings.Contains(s, "502") ||
		strings.Contains(s, "503") || strings.Contains(s, "timeout")
}

func Send(bot *tgbotapi.BotAPI, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return m, err
}

type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier logs the bot in. endpoint overrides the Bot API URL format
// ("https://api.telegram.org/bot%s/%s") and may be empty.
func NewNotifier(token string, chatID int64, endpoint string) (*Notifier, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

func (n *Notifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r := []rune(text); len(r) > maxMessageLen {
		text = string(r[:maxMessageLen-1]) + "…"
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := Send(n.bot, msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Package notify forwards handoff escalations to staff outside the web console.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"livechat/backend/internal/localization"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a message to a staff chat for every handoff.
type Telegram struct {
	bot    sender
	chatID int64
	texts  localization.Texts
}

func NewTelegram(token string, chatID int64, texts localization.Texts) (*Telegram, error) {
	if chatID == 0 {
		return nil, errors.New("telegram chat id is not configured")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("INFO: Telegram notifier authorized on account %s", bot.Self.UserName)
	return newTelegram(bot, chatID, texts), nil
}

func newTelegram(bot sender, chatID int64, texts localization.Texts) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, texts: texts}
}

func (t *Telegram) NotifyHandoff(ctx context.Context, conversationID, visitorName, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, t.format(conversationID, visitorName, reason))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *Telegram) format(conversationID, visitorName, reason string) string {
	if visitorName == "" {
		visitorName = t.texts.Get("unknown_user")
	}
	return fmt.Sprintf(t.texts.Get("notify_handoff"), conversationID, reason, visitorName)
}

// Package telegram delivers reminders through a Telegram bot.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phrazzld/campus-api/internal/reminder"
	"github.com/phrazzld/campus-api/internal/store"
)

// sender is the part of tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier implements reminder.Notifier over Telegram chats.
type Notifier struct {
	bot sender
}

var _ reminder.Notifier = (*Notifier)(nil)

// NewNotifier connects the bot identified by token.
func NewNotifier(token string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	return &Notifier{bot: bot}, nil
}

// Channel implements reminder.Notifier.
func (n *Notifier) Channel() string { return "telegram" }

// Accepts implements reminder.Notifier.
func (n *Notifier) Accepts(r store.DueReminder) bool {
	return r.TelegramChatID != nil && *r.TelegramChatID != 0
}

// Notify implements reminder.Notifier.
func (n *Notifier) Notify(ctx context.Context, r store.DueReminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(*r.TelegramChatID, reminder.Message(r.DueCount))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Package notify pushes operator notifications over Telegram.
package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medio/src/features/config"
)

// TelegramNotifier sends one-way messages to a configured chat. Delivery
// failures are logged and dropped; notifications are best-effort and must
// never stall a worker.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier creates a notifier from the Telegram config section.
func NewTelegramNotifier(cfg *config.Manager) (*TelegramNotifier, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram notifications are disabled in configuration")
	}
	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}
	if telegramConfig.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat_id is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram notifier initialized", "username", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: telegramConfig.ChatID}, nil
}

// RenameCompleted reports a file landing in its destination.
func (t *TelegramNotifier) RenameCompleted(source, destination string) {
	t.send(fmt.Sprintf("📸 Moved %s to %s", source, destination))
}

// DuplicateRemoved reports the removal of a byte-identical copy.
func (t *TelegramNotifier) DuplicateRemoved(path, primary string) {
	t.send(fmt.Sprintf("🗑 Removed %s: a duplicate of %s", path, primary))
}

// StageFailed reports a pipeline stage hitting its error limit. This is
// the one notification an operator must not miss: the stage will not come
// back without a restart.
func (t *TelegramNotifier) StageFailed(stage string) {
	t.send(fmt.Sprintf("🚨 Too many errors, %s thread exited. Restart required.", stage))
}

func (t *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Warn("Failed to send Telegram notification", "error", err)
	}
}

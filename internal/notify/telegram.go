package notify

import (
	"context"

	"storepay-core/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier delivers a human-readable payment alert somewhere. The
// contract is fire-and-forget: implementations log failures and never
// propagate them, so no payment path can stall on a notification.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram builds a Telegram notifier. An unreachable bot API or
// missing token degrades to the no-op notifier with a warning; alerting
// is never a startup blocker.
func NewTelegram(token string, chatID int64) Notifier {
	if token == "" || chatID == 0 {
		logger.L().Warn("telegram notifier not configured, alerts disabled")
		return Nop{}
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.L().Warn("failed to initialize telegram notifier, alerts disabled", zap.Error(err))
		return Nop{}
	}
	bot.Debug = false

	return &telegramNotifier{bot: bot, chatID: chatID}
}

func (n *telegramNotifier) Notify(ctx context.Context, text string) {
	go func() {
		msg := tgbotapi.NewMessage(n.chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			logger.L().Warn("failed to send telegram alert", zap.Error(err))
		}
	}()
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

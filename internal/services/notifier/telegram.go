package notifier

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

// telegram enforces ~20 messages per minute per chat; stay under it.
var telegramSendLimit = rate.Limit(0.3)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes signal alerts to a Telegram chat.
type TelegramNotifier struct {
	bot     telegramSender
	chatID  int64
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTelegramNotifier creates a notifier from a bot token and target chat.
func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}

	logger.Info("telegram notifier ready", zap.String("bot", bot.Self.UserName))

	return &TelegramNotifier{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(telegramSendLimit, 3),
		logger:  logger,
	}, nil
}

// Send implements Notifier. Rate-limited; waits are bounded by ctx.
func (n *TelegramNotifier) Send(ctx context.Context, signal domain.Signal) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait")
	}

	text := fmt.Sprintf("🚨 SIGNAL ALERT 🚨\nAction: %s\nSymbol: %s\nPrice: %.2f\nReason: %s",
		signal.Action, signal.Symbol, signal.Price, signal.Reason)
	if signal.Action == domain.ActionBuy {
		text += fmt.Sprintf("\nSize: %.2f%% of capital", signal.SizeFraction*100)
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return errors.Wrap(err, "send telegram message")
	}

	return nil
}

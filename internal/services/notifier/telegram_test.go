package notifier

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

type sendermock struct {
	sent []tgbotapi.Chattable
	err  error
}

func (s *sendermock) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func newTestNotifier(sender telegramSender) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     sender,
		chatID:  42,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestTelegramSendBuySignal(t *testing.T) {
	sender := &sendermock{}
	n := newTestNotifier(sender)

	sig := domain.Signal{
		ID:           "a",
		Action:       domain.ActionBuy,
		Symbol:       "BBRI",
		Price:        4800,
		SizeFraction: 0.25,
		Reason:       "Regime: STABLE_TREND | Price 4800.00 <= Zone 4825.00 | OBI 0.45",
	}
	require.NoError(t, n.Send(context.Background(), sig))
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "BUY")
	assert.Contains(t, msg.Text, "BBRI")
	assert.Contains(t, msg.Text, "25.00% of capital")
}

func TestTelegramSendSellSignalOmitsSize(t *testing.T) {
	sender := &sendermock{}
	n := newTestNotifier(sender)

	sig := domain.Signal{Action: domain.ActionSell, Symbol: "BBRI", Price: 4500, Reason: "crash regime detected"}
	require.NoError(t, n.Send(context.Background(), sig))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "SELL")
	assert.NotContains(t, msg.Text, "of capital")
}

func TestTelegramSendPropagatesError(t *testing.T) {
	n := newTestNotifier(&sendermock{err: errors.New("api down")})

	err := n.Send(context.Background(), domain.Signal{Action: domain.ActionBuy, Symbol: "BBRI"})
	require.Error(t, err)
}

func TestTelegramSendCancelledContext(t *testing.T) {
	n := &TelegramNotifier{
		bot:     &sendermock{},
		chatID:  42,
		limiter: rate.NewLimiter(rate.Limit(0.001), 0), // force the limiter to wait
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, domain.Signal{Action: domain.ActionBuy, Symbol: "BBRI"})
	require.Error(t, err)
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.NoError(t, n.Send(context.Background(), domain.Signal{Action: domain.ActionBuy, Symbol: "BBRI"}))
}

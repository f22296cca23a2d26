// Package notifier delivers emitted signals to operators. Sends are
// best-effort and fire-and-forget from the pipeline's perspective.
package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

// Notifier sends an emitted signal to an external channel.
type Notifier interface {
	Send(ctx context.Context, signal domain.Signal) error
}

// LogNotifier surfaces signals through the structured log only.
// The default when no chat transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Send implements Notifier.
func (n *LogNotifier) Send(_ context.Context, signal domain.Signal) error {
	n.logger.Info("signal alert",
		zap.String("id", signal.ID),
		zap.String("action", signal.Action.String()),
		zap.String("symbol", signal.Symbol),
		zap.Float64("price", signal.Price),
		zap.Float64("size_fraction", signal.SizeFraction),
		zap.String("reason", signal.Reason))
	return nil
}

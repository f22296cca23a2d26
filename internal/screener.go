// Package internal wires the per-symbol decision pipeline: feed intake,
// price history, regime detection, signal generation and the I/O
// collaborators that must never block the loop.
package internal

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/config"
	"github.com/Subakiz/IDX-SCREENER/internal/domain"
	"github.com/Subakiz/IDX-SCREENER/internal/metrics"
	"github.com/Subakiz/IDX-SCREENER/internal/services/feed"
	"github.com/Subakiz/IDX-SCREENER/internal/services/notifier"
	"github.com/Subakiz/IDX-SCREENER/internal/storage/ticks"
	"github.com/Subakiz/IDX-SCREENER/pkg/retrier"
)

const (
	// idleYield is how long the loop sleeps when the queue is empty,
	// giving other goroutines their scheduling slot.
	idleYield = 200 * time.Microsecond

	// notifyTimeout bounds the best-effort notification send.
	notifyTimeout = 5 * time.Second

	writeQueueSize = 4096
)

type signalStore interface {
	Save(signal domain.Signal) error
	Close() error
}

type tickStrategy interface {
	OnTick(ctx context.Context, tick domain.Tick) (*domain.Signal, error)
}

type prewarmable interface {
	Prefill(prices []float64)
}

// Screener runs the decision loop for one tracked symbol. Ticks are
// processed strictly in arrival order, one at a time; price history and
// regime state are owned by this loop and never touched elsewhere.
type Screener struct {
	conf     config.Config
	feed     feed.Feed
	store    ticks.Store
	signals  signalStore
	notify   notifier.Notifier
	strategy tickStrategy
	hist     prewarmable
	closers  []func()
	logger   *zap.Logger

	queue      chan domain.Tick
	writeQueue chan domain.Tick
}

// Run connects the collaborators, pre-warms history and drives the decision
// loop until ctx is cancelled. On shutdown, intake stops, the in-flight tick
// completes and offloaded resources are released.
func (s *Screener) Run(ctx context.Context) error {
	r := retrier.New()
	if err := r.Do(ctx, s.store.Connect); err != nil {
		return errors.Wrap(err, "connect tick store")
	}
	if err := s.feed.Connect(ctx); err != nil {
		return errors.Wrap(err, "connect feed")
	}

	s.prewarm(ctx, r)

	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		s.persistenceWriter()
	}()

	feedCtx, cancelFeed := context.WithCancel(ctx)
	defer cancelFeed()
	go func() {
		if err := s.feed.Run(feedCtx, s.queue); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("feed stopped", zap.Error(err))
		}
	}()

	s.logger.Info("decision loop live",
		zap.String("symbol", s.conf.Symbol),
		zap.String("feed", s.conf.Feed),
		zap.Int("queue_size", s.conf.QueueSize))

	for {
		select {
		case <-ctx.Done():
			s.shutdown(&writerWG)
			return ctx.Err()
		case tick := <-s.queue:
			s.process(ctx, tick)
		default:
			// queue empty: yield instead of blocking so shutdown and
			// sibling loops stay responsive
			runtime.Gosched()
			time.Sleep(idleYield)
		}
	}
}

// process handles exactly one tick: persistence hand-off, then the strategy
// decision, then the best-effort signal fan-out.
func (s *Screener) process(ctx context.Context, tick domain.Tick) {
	metrics.TicksTotal.WithLabelValues(s.conf.Symbol).Inc()

	// fire-and-forget: on a full writer queue the tick row is dropped,
	// never the loop's latency
	select {
	case s.writeQueue <- tick:
	default:
		metrics.DroppedWritesTotal.WithLabelValues(s.conf.Symbol).Inc()
		s.logger.Warn("persistence writer backlogged, tick dropped", zap.String("tick", tick.String()))
	}

	sig, err := s.strategy.OnTick(ctx, tick)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			s.logger.Debug("strategy skipped tick", zap.Error(err))
		} else {
			s.logger.Error("strategy failed", zap.Error(err))
		}
		return
	}
	if sig == nil {
		return
	}

	s.logger.Info("signal generated", zap.String("signal", sig.String()))
	metrics.SignalsTotal.WithLabelValues(s.conf.Symbol, sig.Action.String()).Inc()

	if err := s.signals.Save(*sig); err != nil {
		s.logger.Error("failed to persist signal", zap.Error(err))
	}

	go func(sig domain.Signal) {
		sendCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notify.Send(sendCtx, sig); err != nil {
			s.logger.Warn("notification failed", zap.Error(err))
		}
	}(*sig)
}

// persistenceWriter drains the write queue until it is closed.
// Write failures are logged and the tick dropped; no retry storm.
func (s *Screener) persistenceWriter() {
	for tick := range s.writeQueue {
		if err := s.store.WriteTick(context.Background(), tick); err != nil {
			s.logger.Error("tick write failed", zap.Error(err))
		}
	}
}

// prewarm seeds the price history from persisted ticks to avoid the
// cold-start warm-up delay. Best effort.
func (s *Screener) prewarm(ctx context.Context, r *retrier.Retrier) {
	history, err := retrier.DoWithData(r, ctx, func(ctx context.Context) ([]domain.Tick, error) {
		return s.store.QueryHistory(ctx, s.conf.Symbol, s.conf.HistoryCap)
	})
	if err != nil {
		s.logger.Warn("history pre-warm failed, starting cold", zap.Error(err))
		return
	}
	if len(history) == 0 {
		return
	}

	prices := make([]float64, len(history))
	for i, t := range history {
		prices[i] = t.Price
	}
	s.hist.Prefill(prices)
	s.logger.Info("price history pre-warmed", zap.Int("prices", len(prices)))
}

func (s *Screener) shutdown(writerWG *sync.WaitGroup) {
	s.logger.Info("shutting down decision loop", zap.String("symbol", s.conf.Symbol))

	close(s.writeQueue)
	writerWG.Wait()

	for _, closeFn := range s.closers {
		closeFn()
	}

	if err := s.signals.Close(); err != nil {
		s.logger.Warn("signal store close failed", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("tick store close failed", zap.Error(err))
	}
}

// Package regime implements the market-state machine driven by the
// topological complexity score.
package regime

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
	"github.com/Subakiz/IDX-SCREENER/internal/services/history"
	"github.com/Subakiz/IDX-SCREENER/internal/services/topology"
)

const (
	// DefaultWindowSize is the number of prices the score is computed over.
	DefaultWindowSize = 50
	// DefaultEvaluationStride amortizes the scoring cost: the detector
	// evaluates only every Nth processed tick.
	DefaultEvaluationStride = 10
	// DefaultCrashThreshold and DefaultStableThreshold split the score range
	// into the three regimes. Calibrated via backtest in theory.
	DefaultCrashThreshold  = 100.0
	DefaultStableThreshold = 50.0
)

// Config tunes the detector thresholds and cadence.
type Config struct {
	WindowSize       int
	EvaluationStride int
	CrashThreshold   float64
	StableThreshold  float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		WindowSize:       DefaultWindowSize,
		EvaluationStride: DefaultEvaluationStride,
		CrashThreshold:   DefaultCrashThreshold,
		StableThreshold:  DefaultStableThreshold,
	}
}

// Detector classifies the market into NEUTRAL, STABLE_TREND or CRASH_RISK.
// It is the only component that mutates the regime; the strategy reads it.
// Owned by the decision loop of one symbol, never shared.
type Detector struct {
	cfg       Config
	scorer    topology.Scorer
	regime    domain.Regime
	tickCount uint64
	logger    *zap.Logger

	// onTransition, when set, observes state changes (metrics hook).
	onTransition func(from, to domain.Regime)
}

// New creates a detector in the NEUTRAL state.
func New(cfg Config, scorer topology.Scorer, logger *zap.Logger) (*Detector, error) {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.EvaluationStride <= 0 {
		cfg.EvaluationStride = DefaultEvaluationStride
	}
	if cfg.CrashThreshold <= cfg.StableThreshold {
		return nil, errors.Wrapf(domain.ErrInvalidConfiguration,
			"crash threshold %.2f must exceed stable threshold %.2f", cfg.CrashThreshold, cfg.StableThreshold)
	}
	if scorer == nil {
		return nil, errors.Wrap(domain.ErrInvalidConfiguration, "scorer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Detector{
		cfg:    cfg,
		scorer: scorer,
		regime: domain.RegimeNeutral,
		logger: logger,
	}, nil
}

// SetTransitionHook registers an observer for regime changes.
func (d *Detector) SetTransitionHook(hook func(from, to domain.Regime)) {
	d.onTransition = hook
}

// Current returns the present regime.
func (d *Detector) Current() domain.Regime {
	return d.regime
}

// OnTick advances the tick counter and, on evaluation ticks with a warm
// history, recomputes the regime from the complexity score. Each evaluation
// recomputes from scratch: there is no hysteresis smoothing. When the score
// is unavailable the previous regime is retained.
func (d *Detector) OnTick(ctx context.Context, hist *history.PriceHistory) domain.Regime {
	d.tickCount++

	if hist.Len() < d.cfg.WindowSize {
		return d.regime
	}
	if d.tickCount%uint64(d.cfg.EvaluationStride) != 0 {
		return d.regime
	}

	window, err := hist.Window(d.cfg.WindowSize)
	if err != nil {
		return d.regime
	}

	score, err := d.scorer.Score(ctx, window)
	if err != nil {
		d.logger.Warn("regime evaluation skipped", zap.Error(err))
		return d.regime
	}

	d.logger.Debug("complexity score", zap.Float64("score", score))

	next := domain.RegimeNeutral
	switch {
	case score > d.cfg.CrashThreshold:
		next = domain.RegimeCrashRisk
	case score < d.cfg.StableThreshold:
		next = domain.RegimeStableTrend
	}

	if next != d.regime {
		d.logger.Info("regime change",
			zap.String("from", d.regime.String()),
			zap.String("to", next.String()),
			zap.Float64("score", score))
		if d.onTransition != nil {
			d.onTransition(d.regime, next)
		}
		d.regime = next
	}

	return d.regime
}

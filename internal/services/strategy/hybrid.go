// Package strategy combines the regime state machine, Monte Carlo bands and
// order-book imbalance into the per-tick emit/no-emit decision.
package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
	"github.com/Subakiz/IDX-SCREENER/internal/services/history"
	"github.com/Subakiz/IDX-SCREENER/internal/services/montecarlo"
)

const (
	// minPricesForEntry gates the stable-trend branch: it needs 21 prices
	// (20 simple returns) on top of a warm history.
	minPricesForEntry = 21
	returnsPerWindow  = minPricesForEntry - 1

	// annualizationScale converts per-second return moments to annual terms:
	// 252 trading days x 390 minutes x 60 seconds.
	annualizationScale = 252 * 390 * 60

	// obiThreshold is the minimum order-book imbalance for an entry.
	obiThreshold = 0.3
	// rewardRiskRatio is the assumed payoff ratio fed into Kelly sizing.
	rewardRiskRatio = 2.0
)

type simulator interface {
	Simulate(startPrice, drift, volatility float64) (domain.SimulationResult, error)
}

type regimeDetector interface {
	OnTick(ctx context.Context, hist *history.PriceHistory) domain.Regime
	Current() domain.Regime
}

// Hybrid is the tick-driven decision function. It owns the per-symbol price
// history, regime detector and paper position; all state is mutated only on
// the decision loop of its symbol.
type Hybrid struct {
	symbol   string
	hist     *history.PriceHistory
	detector regimeDetector
	sim      simulator
	logger   *zap.Logger

	position *domain.Position
}

// NewHybrid wires the strategy for one symbol.
func NewHybrid(symbol string, hist *history.PriceHistory, detector regimeDetector, sim simulator, logger *zap.Logger) (*Hybrid, error) {
	if symbol == "" {
		return nil, errors.Wrap(domain.ErrInvalidConfiguration, "symbol is required")
	}
	if hist == nil || detector == nil || sim == nil {
		return nil, errors.Wrap(domain.ErrInvalidConfiguration, "history, detector and simulator are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Hybrid{
		symbol:   symbol,
		hist:     hist,
		detector: detector,
		sim:      sim,
		logger:   logger,
	}, nil
}

// History exposes the strategy-owned price history for pre-warming.
func (h *Hybrid) History() *history.PriceHistory {
	return h.hist
}

// HasOpenPosition reports whether a paper position is currently tracked.
func (h *Hybrid) HasOpenPosition() bool {
	return h.position.IsOpen()
}

// OnTick processes one tick in arrival order: updates history, advances the
// regime detector and decides whether to emit a signal. A nil signal is the
// expected common case, not an error.
func (h *Hybrid) OnTick(ctx context.Context, tick domain.Tick) (*domain.Signal, error) {
	h.hist.Push(tick.Price)

	reg := h.detector.OnTick(ctx, h.hist)

	switch {
	case reg == domain.RegimeStableTrend && h.hist.Len() > minPricesForEntry:
		return h.evaluateEntry(tick)
	case reg == domain.RegimeCrashRisk && h.position.IsOpen():
		return h.liquidate(tick), nil
	}

	return nil, nil
}

func (h *Hybrid) evaluateEntry(tick domain.Tick) (*domain.Signal, error) {
	window, err := h.hist.Window(minPricesForEntry)
	if err != nil {
		return nil, err
	}

	mu, sigma := estimateAnnualized(window)

	res, err := h.sim.Simulate(tick.Price, mu, sigma)
	if err != nil {
		return nil, errors.Wrap(err, "monte carlo simulation failed")
	}

	// Mean reversion: buy below the simulated next-step 5th percentile.
	buyZone := res.LowerBound[1]
	obi := tick.OrderBookImbalance()

	if tick.Price > buyZone || obi <= obiThreshold {
		return nil, nil
	}

	winProb := 1.0 - res.RuinProbability
	kelly := montecarlo.KellyFraction(winProb, rewardRiskRatio, 1.0)
	if kelly <= 0 {
		return nil, nil
	}

	sig := &domain.Signal{
		ID:           uuid.New().String(),
		Action:       domain.ActionBuy,
		Symbol:       h.symbol,
		Price:        tick.Price,
		Timestamp:    time.Now(),
		SizeFraction: kelly,
		Reason:       fmt.Sprintf("Regime: %s | Price %.2f <= Zone %.2f | OBI %.2f", domain.RegimeStableTrend, tick.Price, buyZone, obi),
	}

	h.openPosition(tick.Price, kelly)

	return sig, nil
}

func (h *Hybrid) liquidate(tick domain.Tick) *domain.Signal {
	sig := &domain.Signal{
		ID:        uuid.New().String(),
		Action:    domain.ActionSell,
		Symbol:    h.symbol,
		Price:     tick.Price,
		Timestamp: time.Now(),
		Reason:    "crash regime detected",
	}

	pnl := h.position.PnLPercent(decimal.NewFromFloat(tick.Price))
	h.logger.Info("closing paper position",
		zap.String("symbol", h.symbol),
		zap.String("entry_price", h.position.EntryPrice.String()),
		zap.Float64("exit_price", tick.Price),
		zap.String("pnl_percent", pnl.StringFixed(2)))
	h.position = nil

	return sig
}

// openPosition tracks the first BUY as a paper position; repeated BUY
// signals while a position is open are still emitted but not re-tracked.
func (h *Hybrid) openPosition(price, fraction float64) {
	if h.position.IsOpen() {
		return
	}

	pos, err := domain.NewPosition(h.symbol, decimal.NewFromFloat(price), decimal.NewFromFloat(fraction), time.Now())
	if err != nil {
		h.logger.Warn("failed to track paper position", zap.Error(err))
		return
	}
	h.position = pos
}

// estimateAnnualized derives annualized drift and volatility from the simple
// returns of the window, using the same moment pipeline as the indicator
// stack (SMA for the mean, moving standard deviation for the spread).
func estimateAnnualized(window []float64) (mu, sigma float64) {
	returns := make([]float64, 0, returnsPerWindow)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (window[i]-window[i-1])/window[i-1])
	}

	sma := trend.NewSmaWithPeriod[float64](len(returns))
	means := helper.ChanToSlice(sma.Compute(helper.SliceToChan(returns)))

	std := volatility.NewMovingStdWithPeriod[float64](len(returns))
	stds := helper.ChanToSlice(std.Compute(helper.SliceToChan(returns)))

	var mean, spread float64
	if len(means) > 0 {
		mean = means[len(means)-1]
	}
	if len(stds) > 0 {
		spread = stds[len(stds)-1]
	}

	mu = mean * annualizationScale
	sigma = spread * math.Sqrt(annualizationScale)
	return mu, sigma
}

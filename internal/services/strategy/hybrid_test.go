package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
	"github.com/Subakiz/IDX-SCREENER/internal/services/history"
)

type detectormock struct {
	reg domain.Regime
}

func (d *detectormock) OnTick(_ context.Context, _ *history.PriceHistory) domain.Regime {
	return d.reg
}

func (d *detectormock) Current() domain.Regime {
	return d.reg
}

type simulatormock struct {
	result domain.SimulationResult
	err    error
	calls  int
}

func (s *simulatormock) Simulate(startPrice, _, _ float64) (domain.SimulationResult, error) {
	s.calls++
	if s.err != nil {
		return domain.SimulationResult{}, s.err
	}
	return s.result, nil
}

func bands(start, lower1 float64) domain.SimulationResult {
	return domain.SimulationResult{
		MedianPath:      []float64{start, start, start},
		LowerBound:      []float64{start, lower1, lower1},
		UpperBound:      []float64{start, start * 1.05, start * 1.05},
		RuinProbability: 0.05,
	}
}

func newTestHybrid(t *testing.T, reg domain.Regime, sim *simulatormock, prices int) *Hybrid {
	t.Helper()

	hist := history.New(history.DefaultCap)
	for i := 0; i < prices; i++ {
		hist.Push(4800)
	}

	h, err := NewHybrid("BBRI", hist, &detectormock{reg: reg}, sim, nil)
	require.NoError(t, err)
	return h
}

func tick(price float64, bidVol, askVol int64) domain.Tick {
	return domain.Tick{Symbol: "BBRI", Price: price, BidVol: bidVol, AskVol: askVol}
}

func TestNeutralRegimeEmitsNothing(t *testing.T) {
	sim := &simulatormock{result: bands(4800, 4900)}
	h := newTestHybrid(t, domain.RegimeNeutral, sim, 100)

	sig, err := h.OnTick(context.Background(), tick(4800, 5000, 1000))
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.Zero(t, sim.calls, "no simulation outside STABLE_TREND")
}

func TestStableTrendBuySignal(t *testing.T) {
	// buy zone above the current price so the mean-reversion gate passes
	sim := &simulatormock{result: bands(4800, 4900)}
	h := newTestHybrid(t, domain.RegimeStableTrend, sim, 100)

	sig, err := h.OnTick(context.Background(), tick(4800, 5000, 1000))
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, domain.ActionBuy, sig.Action)
	assert.Equal(t, "BBRI", sig.Symbol)
	assert.Equal(t, 4800.0, sig.Price)
	assert.Greater(t, sig.SizeFraction, 0.0)
	assert.LessOrEqual(t, sig.SizeFraction, 0.5, "half-Kelly cap")
	assert.Contains(t, sig.Reason, "STABLE_TREND")
	assert.NotEmpty(t, sig.ID)
	assert.True(t, h.HasOpenPosition())
}

func TestStableTrendPriceAboveBuyZone(t *testing.T) {
	sim := &simulatormock{result: bands(4800, 4700)}
	h := newTestHybrid(t, domain.RegimeStableTrend, sim, 100)

	sig, err := h.OnTick(context.Background(), tick(4800, 5000, 1000))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestStableTrendWeakOrderBook(t *testing.T) {
	sim := &simulatormock{result: bands(4800, 4900)}
	h := newTestHybrid(t, domain.RegimeStableTrend, sim, 100)

	// balanced book: OBI = 0, below the 0.3 gate
	sig, err := h.OnTick(context.Background(), tick(4800, 1000, 1000))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestStableTrendHighRuinBlocksEntry(t *testing.T) {
	res := bands(4800, 4900)
	res.RuinProbability = 1.0 // win probability 0 -> kelly 0
	sim := &simulatormock{result: res}
	h := newTestHybrid(t, domain.RegimeStableTrend, sim, 100)

	sig, err := h.OnTick(context.Background(), tick(4800, 5000, 1000))
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.False(t, h.HasOpenPosition())
}

func TestStableTrendShortHistorySkipsEntry(t *testing.T) {
	sim := &simulatormock{result: bands(4800, 4900)}
	// 20 prior prices: after the tick push the history holds 21, not > 21
	h := newTestHybrid(t, domain.RegimeStableTrend, sim, 20)

	sig, err := h.OnTick(context.Background(), tick(4800, 5000, 1000))
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.Zero(t, sim.calls)
}

func TestCrashRegimeLiquidatesOpenPosition(t *testing.T) {
	sim := &simulatormock{result: bands(4800, 4900)}
	h := newTestHybrid(t, domain.RegimeStableTrend, sim, 100)

	buy, err := h.OnTick(context.Background(), tick(4800, 5000, 1000))
	require.NoError(t, err)
	require.NotNil(t, buy)
	require.True(t, h.HasOpenPosition())

	h.detector = &detectormock{reg: domain.RegimeCrashRisk}

	sell, err := h.OnTick(context.Background(), tick(4500, 1000, 5000))
	require.NoError(t, err)
	require.NotNil(t, sell)

	assert.Equal(t, domain.ActionSell, sell.Action)
	assert.Equal(t, 4500.0, sell.Price)
	assert.Contains(t, sell.Reason, "crash regime detected")
	assert.Zero(t, sell.SizeFraction)
	assert.False(t, h.HasOpenPosition())
}

func TestCrashRegimeWithoutPositionIsSilent(t *testing.T) {
	sim := &simulatormock{result: bands(4800, 4900)}
	h := newTestHybrid(t, domain.RegimeCrashRisk, sim, 100)

	sig, err := h.OnTick(context.Background(), tick(4500, 1000, 5000))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestEstimateAnnualized(t *testing.T) {
	flat := make([]float64, minPricesForEntry)
	for i := range flat {
		flat[i] = 4800
	}

	mu, sigma := estimateAnnualized(flat)
	assert.InDelta(t, 0.0, mu, 1e-9)
	assert.InDelta(t, 0.0, sigma, 1e-9)

	rising := make([]float64, minPricesForEntry)
	for i := range rising {
		rising[i] = 4800 * (1 + 0.001*float64(i))
	}
	mu, sigma = estimateAnnualized(rising)
	assert.Greater(t, mu, 0.0)
	assert.GreaterOrEqual(t, sigma, 0.0)
}

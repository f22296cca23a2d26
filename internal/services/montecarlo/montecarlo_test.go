package montecarlo

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

func newTestSimulator(t *testing.T, paths, horizon int, dt float64) *Simulator {
	t.Helper()
	sim, err := New(paths, horizon, dt, WithRand(rand.New(rand.NewSource(42))))
	require.NoError(t, err)
	return sim
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		paths   int
		horizon int
		dt      float64
	}{
		{"zero paths", 0, 5, 1.0 / 252},
		{"negative paths", -1, 5, 1.0 / 252},
		{"zero horizon", 100, 0, 1.0 / 252},
		{"zero dt", 100, 5, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.paths, tc.horizon, tc.dt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
		})
	}
}

func TestSimulateBandsStartAtCurrentPrice(t *testing.T) {
	sim := newTestSimulator(t, 500, 5, 1.0/252)

	res, err := sim.Simulate(4800, 0, 0.02)
	require.NoError(t, err)

	require.Len(t, res.MedianPath, 6)
	require.Len(t, res.LowerBound, 6)
	require.Len(t, res.UpperBound, 6)

	// t=0 is the observed price, not an estimate
	assert.Equal(t, 4800.0, res.LowerBound[0])
	assert.Equal(t, 4800.0, res.MedianPath[0])
	assert.Equal(t, 4800.0, res.UpperBound[0])
}

func TestSimulateBandOrdering(t *testing.T) {
	sim := newTestSimulator(t, 500, 10, 1.0/252)

	res, err := sim.Simulate(1000, 0.05, 0.3)
	require.NoError(t, err)

	for i := range res.MedianPath {
		assert.LessOrEqual(t, res.LowerBound[i], res.MedianPath[i])
		assert.LessOrEqual(t, res.MedianPath[i], res.UpperBound[i])
	}
}

func TestSimulateCircuitBreakerFloor(t *testing.T) {
	// huge negative drift forces every path toward the floor
	sim := newTestSimulator(t, 200, 20, 1.0/252)

	res, err := sim.Simulate(1000, -10000, 0.5)
	require.NoError(t, err)

	floor := 1000 * 0.65
	for i := range res.LowerBound {
		assert.GreaterOrEqual(t, res.LowerBound[i], floor)
	}
	assert.InDelta(t, floor, res.LowerBound[len(res.LowerBound)-1], 1e-9)
}

func TestSimulateRuinProbabilityBounds(t *testing.T) {
	sim := newTestSimulator(t, 300, 10, 1.0/252)

	res, err := sim.Simulate(4800, 0.1, 0.4)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.RuinProbability, 0.0)
	assert.LessOrEqual(t, res.RuinProbability, 1.0)
}

func TestSimulateNoJumpsZeroVolNeverRuins(t *testing.T) {
	sim, err := New(500, 5, 1.0/252,
		WithRand(rand.New(rand.NewSource(42))),
		WithJumpProbability(0))
	require.NoError(t, err)

	// pure diffusion with zero volatility is deterministic: drift-only
	// paths with non-negative drift can never dip below the stop-loss
	for _, drift := range []float64{0, 0.1, 1.5} {
		res, err := sim.Simulate(4800, drift, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.RuinProbability, "drift %v", drift)
	}

	// zero drift keeps every band flat at the start price
	res, err := sim.Simulate(4800, 0, 0)
	require.NoError(t, err)
	for i := range res.MedianPath {
		assert.InDelta(t, 4800.0, res.LowerBound[i], 1e-9)
		assert.InDelta(t, 4800.0, res.MedianPath[i], 1e-9)
		assert.InDelta(t, 4800.0, res.UpperBound[i], 1e-9)
	}
}

func TestSimulateRejectsNonPositiveStart(t *testing.T) {
	sim := newTestSimulator(t, 10, 5, 1.0/252)

	_, err := sim.Simulate(0, 0, 0.2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}

func TestKellyFraction(t *testing.T) {
	cases := []struct {
		name     string
		p        float64
		b        float64
		modifier float64
		want     float64
	}{
		{"fails closed on zero ratio", 0.9, 0, 1.0, 0.0},
		{"fails closed on negative ratio", 0.9, -1, 1.0, 0.0},
		{"certain win", 1.0, 2.0, 1.0, 0.5},
		{"half kelly at p=0.75 b=2", 0.75, 2.0, 1.0, 0.3125},
		{"negative edge floors at zero", 0.2, 1.0, 1.0, 0.0},
		{"modifier scales", 0.75, 2.0, 0.5, 0.15625},
		{"zero modifier", 0.75, 2.0, 0.0, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, KellyFraction(tc.p, tc.b, tc.modifier), 1e-12)
		})
	}
}

func TestPercentileSorted(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	assert.Equal(t, 3.0, percentileSorted(sorted, 50))
	assert.Equal(t, 1.0, percentileSorted(sorted, 0))
	assert.Equal(t, 5.0, percentileSorted(sorted, 100))
	assert.InDelta(t, 1.2, percentileSorted(sorted, 5), 1e-9)
	assert.Equal(t, 7.0, percentileSorted([]float64{7}, 50))
	assert.Equal(t, 0.0, percentileSorted(nil, 50))
}

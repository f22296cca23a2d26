// Package montecarlo simulates forward price paths under jump-diffusion and
// derives the percentile bands, ruin probability and Kelly position size the
// strategy trades on.
package montecarlo

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

const (
	// jumpProbability is the default per-step chance of a discrete shock.
	jumpProbability = 0.01
	// jumpMean and jumpStd parameterize the log-return of a jump;
	// the negative mean encodes tail/crash risk.
	jumpMean = -0.10
	jumpStd  = 0.05

	// circuitBreakerFloor clamps every simulated value at start*0.65.
	// The floor is applied after the stochastic step, not as a reflecting
	// boundary: backtest parity depends on this exact order of operations.
	circuitBreakerFloor = 0.65
	// stopLossReference marks a path as ruined when its minimum dips
	// below start*0.95. Independent of the circuit-breaker floor.
	stopLossReference = 0.95

	// halfKelly damps the raw Kelly fraction.
	halfKelly = 0.5
)

// Simulator runs vectorized jump-diffusion Monte Carlo simulations.
type Simulator struct {
	paths    int
	horizon  int
	dt       float64
	jumpProb float64
	rng      *rand.Rand
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand injects a random source, making simulations deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithJumpProbability overrides the per-step shock chance. Zero disables
// jumps, leaving pure diffusion.
func WithJumpProbability(p float64) Option {
	return func(s *Simulator) {
		if p >= 0 && p <= 1 {
			s.jumpProb = p
		}
	}
}

// New creates a simulator for the given path count, horizon and step size.
func New(paths, horizon int, dt float64, opts ...Option) (*Simulator, error) {
	if paths < 1 {
		return nil, errors.Wrapf(domain.ErrInvalidConfiguration, "path count must be >= 1, got %d", paths)
	}
	if horizon < 1 {
		return nil, errors.Wrapf(domain.ErrInvalidConfiguration, "horizon must be >= 1, got %d", horizon)
	}
	if dt <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidConfiguration, "step dt must be positive, got %f", dt)
	}

	s := &Simulator{
		paths:    paths,
		horizon:  horizon,
		dt:       dt,
		jumpProb: jumpProbability,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Simulate generates price paths from startPrice under geometric Brownian
// motion with superimposed jumps and returns the per-step bands.
// A non-positive volatility degenerates to a drift-only path.
func (s *Simulator) Simulate(startPrice, drift, volatility float64) (domain.SimulationResult, error) {
	if startPrice <= 0 {
		return domain.SimulationResult{}, errors.Wrapf(domain.ErrInvalidConfiguration, "start price must be positive, got %f", startPrice)
	}

	floor := startPrice * circuitBreakerFloor
	stopLoss := startPrice * stopLossReference

	paths := make([][]float64, s.paths)
	ruined := 0

	for i := range paths {
		path := make([]float64, s.horizon+1)
		path[0] = startPrice
		logPrice := math.Log(startPrice)
		hitStop := false

		for t := 1; t <= s.horizon; t++ {
			ret := (drift-0.5*volatility*volatility)*s.dt +
				volatility*math.Sqrt(s.dt)*s.rng.NormFloat64()

			if s.jumpProb > 0 && s.rng.Float64() < s.jumpProb {
				ret += jumpMean + jumpStd*s.rng.NormFloat64()
			}

			logPrice += ret
			price := math.Exp(logPrice)
			if price < floor {
				price = floor
				logPrice = math.Log(floor)
			}
			path[t] = price

			if price < stopLoss {
				hitStop = true
			}
		}

		if hitStop {
			ruined++
		}
		paths[i] = path
	}

	result := domain.SimulationResult{
		MedianPath:      make([]float64, s.horizon+1),
		LowerBound:      make([]float64, s.horizon+1),
		UpperBound:      make([]float64, s.horizon+1),
		RuinProbability: float64(ruined) / float64(s.paths),
	}

	column := make([]float64, s.paths)
	for t := 0; t <= s.horizon; t++ {
		for i := range paths {
			column[i] = paths[i][t]
		}
		sort.Float64s(column)
		result.LowerBound[t] = percentileSorted(column, 5)
		result.MedianPath[t] = percentileSorted(column, 50)
		result.UpperBound[t] = percentileSorted(column, 95)
	}

	return result, nil
}

// KellyFraction returns the damped Kelly bet size f = (p*b - q)/b, halved,
// floored at zero and scaled by the regime confidence modifier.
// Fails closed (0.0) for a non-positive win/loss ratio.
func KellyFraction(winProbability, winLossRatio, regimeModifier float64) float64 {
	if winLossRatio <= 0 {
		return 0.0
	}

	p := winProbability
	q := 1 - p
	b := winLossRatio

	kelly := (p*b - q) / b * halfKelly
	if kelly < 0 {
		kelly = 0
	}

	return kelly * regimeModifier
}

// percentileSorted computes the q-th percentile of sorted values with
// linear interpolation between closest ranks.
func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

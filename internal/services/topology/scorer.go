// Package topology provides the complexity-score collaborator: a scorer
// interface over a recent price window, a built-in persistence-based
// implementation, and a single-worker offload that keeps the scoring work
// off the decision loop's critical path.
package topology

import (
	"context"
	"math"
	"sort"
)

// Scorer computes a non-negative structural complexity score over a window
// of recent prices. Implementations may be slow; callers are expected to go
// through AsyncScorer instead of invoking a Scorer on the decision loop.
type Scorer interface {
	Score(ctx context.Context, window []float64) (float64, error)
}

// LandscapeScorer computes the L1 norm of the 0-dimensional sublevel-set
// persistence diagram of the price window. Choppy, structurally irregular
// windows produce many long-lived components and a high score; smooth
// trends score low.
type LandscapeScorer struct {
	// Scale converts the dimensionless persistence mass into the score range
	// the regime thresholds are calibrated for.
	Scale float64
}

// NewLandscapeScorer creates a scorer with the default scale.
func NewLandscapeScorer() *LandscapeScorer {
	return &LandscapeScorer{Scale: 1000}
}

// Score implements Scorer.
func (s *LandscapeScorer) Score(_ context.Context, window []float64) (float64, error) {
	if len(window) < 3 {
		return 0, nil
	}

	mean := 0.0
	for _, p := range window {
		mean += p
	}
	mean /= float64(len(window))
	if mean <= 0 {
		return 0, nil
	}

	total := persistenceMass(window)

	scale := s.Scale
	if scale <= 0 {
		scale = 1000
	}

	return total / mean * scale, nil
}

// persistenceMass sums the lifetimes of all finite 0-dim persistence pairs
// of the sublevel-set filtration of the series.
func persistenceMass(series []float64) float64 {
	n := len(series)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if series[order[a]] == series[order[b]] {
			return order[a] < order[b]
		}
		return series[order[a]] < series[order[b]]
	})

	parent := make([]int, n)
	birth := make([]float64, n)
	active := make([]bool, n)
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	total := 0.0

	for _, idx := range order {
		v := series[idx]
		active[idx] = true
		birth[idx] = v

		for _, nb := range []int{idx - 1, idx + 1} {
			if nb < 0 || nb >= n || !active[nb] {
				continue
			}
			ra, rb := find(idx), find(nb)
			if ra == rb {
				continue
			}
			// the younger component dies at the current level
			older, younger := ra, rb
			if birth[rb] < birth[ra] {
				older, younger = rb, ra
			}
			total += v - birth[younger]
			parent[younger] = older
		}
	}

	if math.IsNaN(total) || total < 0 {
		return 0
	}
	return total
}

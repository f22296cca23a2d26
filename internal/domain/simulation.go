package domain

// SimulationResult is the output of one Monte Carlo run. Each band has
// horizon+1 entries, one per simulated step including t=0.
type SimulationResult struct {
	MedianPath []float64
	// LowerBound is the 5th percentile across paths per step.
	LowerBound []float64
	// UpperBound is the 95th percentile across paths per step.
	UpperBound []float64
	// RuinProbability is the fraction of paths whose minimum ever dropped
	// below the stop-loss reference, in [0,1].
	RuinProbability float64
}

package domain

// Regime is the coarse market-state classification produced by the
// regime detector. It drives which decision branch of the strategy is active.
type Regime int

const (
	// RegimeNeutral means no branch is active; the strategy stays flat.
	RegimeNeutral Regime = iota
	// RegimeStableTrend enables the mean-reversion entry branch.
	RegimeStableTrend
	// RegimeCrashRisk forces position liquidation.
	RegimeCrashRisk
)

// String returns the canonical name used in logs and signal reasons.
func (r Regime) String() string {
	switch r {
	case RegimeStableTrend:
		return "STABLE_TREND"
	case RegimeCrashRisk:
		return "CRASH_RISK"
	default:
		return "NEUTRAL"
	}
}

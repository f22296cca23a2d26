package domain

import "github.com/pkg/errors"

var (
	// ErrInsufficientData indicates not enough history for an operation.
	// Non-fatal: the caller skips the operation for this cycle.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidConfiguration indicates bad simulation or strategy parameters.
	// Fatal to the call, not to the process.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrFeedUnavailable indicates the market data source cannot be reached.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrScoreUnavailable indicates the complexity-score computation failed,
	// timed out or the worker was busy. The detector retains the previous regime.
	ErrScoreUnavailable = errors.New("complexity score unavailable")
)

// Package history keeps the bounded per-symbol price window the
// decision loop feeds into regime detection and simulation.
package history

import (
	"github.com/pkg/errors"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

// DefaultCap bounds the number of retained prices per symbol.
const DefaultCap = 200

// PriceHistory is a FIFO-bounded ordered buffer of recent prices.
// It is owned exclusively by the decision loop of one symbol and is
// never accessed from another goroutine.
type PriceHistory struct {
	prices []float64
	cap    int
}

// New creates a price history with the given capacity (DefaultCap when <= 0).
func New(capacity int) *PriceHistory {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &PriceHistory{
		prices: make([]float64, 0, capacity),
		cap:    capacity,
	}
}

// Push appends a price, evicting the oldest entry when the cap is exceeded.
func (h *PriceHistory) Push(price float64) {
	if len(h.prices) == h.cap {
		copy(h.prices, h.prices[1:])
		h.prices = h.prices[:h.cap-1]
	}
	h.prices = append(h.prices, price)
}

// Prefill seeds the history with persisted prices, oldest first.
// Only the most recent cap entries are kept.
func (h *PriceHistory) Prefill(prices []float64) {
	for _, p := range prices {
		h.Push(p)
	}
}

// Window returns the most recent n prices in chronological order.
func (h *PriceHistory) Window(n int) ([]float64, error) {
	if n <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidConfiguration, "window size %d", n)
	}
	if len(h.prices) < n {
		return nil, errors.Wrapf(domain.ErrInsufficientData, "need %d prices, have %d", n, len(h.prices))
	}
	window := make([]float64, n)
	copy(window, h.prices[len(h.prices)-n:])
	return window, nil
}

// Len returns the number of retained prices.
func (h *PriceHistory) Len() int {
	return len(h.prices)
}

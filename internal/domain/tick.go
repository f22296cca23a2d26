// Package domain defines core data structures shared across the screener pipeline.
package domain

import "fmt"

// Tick is a single market observation delivered by a feed.
// Immutable after creation: the pipeline appends the price to history,
// hands the tick to persistence and never touches it again.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume"`
	Timestamp float64 `json:"timestamp"` // seconds since epoch, monotonic per symbol
	BidVol    int64   `json:"bid_vol"`
	AskVol    int64   `json:"ask_vol"`
}

// OrderBookImbalance returns (bid-ask)/(bid+ask) in [-1,1],
// or 0 when the book is empty.
func (t Tick) OrderBookImbalance() float64 {
	total := t.BidVol + t.AskVol
	if total == 0 {
		return 0
	}
	return float64(t.BidVol-t.AskVol) / float64(total)
}

// String returns a compact human-readable representation.
func (t Tick) String() string {
	return fmt.Sprintf("%s @ %.2f (vol=%d bid=%d ask=%d)", t.Symbol, t.Price, t.Volume, t.BidVol, t.AskVol)
}

// TickRecord bundles a persisted tick with its store index.
type TickRecord struct {
	Index uint64
	Tick  Tick
}

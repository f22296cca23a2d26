package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Position represents an open paper position tracked in memory by the strategy.
type Position struct {
	Symbol     string
	EntryPrice decimal.Decimal
	// Fraction is the Kelly-derived share of capital committed, in (0,1].
	Fraction  decimal.Decimal
	EntryTime time.Time
}

// NewPosition constructs a position opened by a BUY signal.
func NewPosition(symbol string, entryPrice, fraction decimal.Decimal, entryTime time.Time) (*Position, error) {
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("entry price must be greater than zero")
	}
	if fraction.LessThanOrEqual(decimal.Zero) || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.New("position fraction must be in (0,1]")
	}

	return &Position{
		Symbol:     symbol,
		EntryPrice: entryPrice,
		Fraction:   fraction,
		EntryTime:  entryTime,
	}, nil
}

// PnLPercent returns the percentage move against the entry price.
func (p *Position) PnLPercent(currentPrice decimal.Decimal) decimal.Decimal {
	if p == nil || p.EntryPrice.IsZero() {
		return decimal.Zero
	}
	return currentPrice.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(decimal.NewFromInt(100))
}

// IsOpen returns true if the position exists and has a positive fraction.
func (p *Position) IsOpen() bool {
	return p != nil && p.Fraction.IsPositive()
}

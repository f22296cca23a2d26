// Package ticks persists the market tick stream. The store is append-mostly:
// the decision loop writes, the dashboard process reads, and reads tolerate
// a slightly stale tail, so no cross-process locking is required.
package ticks

import (
	"context"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

// Store is the persistence collaborator contract. WriteTick failures must
// not propagate into the decision loop: callers log and drop.
type Store interface {
	// Connect prepares the backing storage. Idempotent.
	Connect(ctx context.Context) error
	// WriteTick appends one tick.
	WriteTick(ctx context.Context, tick domain.Tick) error
	// QueryHistory returns up to limit most recent ticks for the symbol,
	// ordered oldest first. Used once at startup to pre-warm price history.
	QueryHistory(ctx context.Context, symbol string, limit int) ([]domain.Tick, error)
	// TicksAfter returns persisted ticks with indexes greater than index,
	// for the dashboard's polling reader.
	TicksAfter(index uint64) ([]domain.TickRecord, error)
	// Close releases the store.
	Close() error
}

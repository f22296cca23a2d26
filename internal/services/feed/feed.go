// Package feed hosts the market data collaborators that deliver ticks to the
// decision loop through a bounded queue.
package feed

import (
	"context"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

// Feed is a pluggable tick source. Run pushes ticks onto the provided queue
// until the context is cancelled; the queue is bounded and drained
// non-blockingly by the decision loop.
type Feed interface {
	// Connect prepares the source. Idempotent; returns ErrFeedUnavailable
	// when the data source cannot be reached.
	Connect(ctx context.Context) error
	// Run streams ticks until ctx is cancelled.
	Run(ctx context.Context, out chan domain.Tick) error
}

// Enqueue pushes a tick onto the bounded queue with a drop-oldest overflow
// policy: the newest quote is the most valuable one for a mean-reversion
// entry, so on a full queue the stalest tick is discarded instead.
func Enqueue(out chan domain.Tick, tick domain.Tick, onDrop func()) {
	select {
	case out <- tick:
		return
	default:
	}

	select {
	case <-out:
		if onDrop != nil {
			onDrop()
		}
	default:
	}

	select {
	case out <- tick:
	default:
		if onDrop != nil {
			onDrop()
		}
	}
}

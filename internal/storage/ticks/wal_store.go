package ticks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

const (
	// DefaultDir is where the tick WAL lives unless configured otherwise.
	DefaultDir = "./wal/ticks"

	segmentThreshold = 10000
	maxSegments      = 100

	tickKeyPrefix = "tick_"
)

// WALStore persists ticks in an append-only WAL. The default store: no
// external service required, and the dashboard process can open the same
// directory read-only.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) a tick WAL in dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "tick_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: false,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init tick WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Connect implements Store. The WAL is opened at construction time.
func (s *WALStore) Connect(_ context.Context) error {
	if s == nil || s.wal == nil {
		return errors.New("tick store is not initialized")
	}
	return nil
}

// WriteTick implements Store.
func (s *WALStore) WriteTick(_ context.Context, tick domain.Tick) error {
	if s == nil || s.wal == nil {
		return errors.New("tick store is not initialized")
	}
	if tick.Symbol == "" {
		return errors.New("tick symbol is required")
	}

	payload, err := json.Marshal(tick)
	if err != nil {
		return errors.Wrap(err, "marshal tick")
	}

	key := fmt.Sprintf("%s%s", tickKeyPrefix, tick.Symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// QueryHistory implements Store: the most recent limit ticks, oldest first.
func (s *WALStore) QueryHistory(_ context.Context, symbol string, limit int) ([]domain.Tick, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("tick store is not initialized")
	}
	if limit <= 0 {
		return nil, nil
	}

	key := fmt.Sprintf("%s%s", tickKeyPrefix, symbol)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Tick
	for idx := uint64(1); idx <= s.wal.CurrentIndex(); idx++ {
		k, payload, err := s.wal.Get(idx)
		if err != nil {
			// pruned segment or hole, skip
			continue
		}
		if k != key {
			continue
		}

		var tick domain.Tick
		if err := json.Unmarshal(payload, &tick); err != nil {
			return nil, errors.Wrap(err, "decode tick")
		}
		matched = append(matched, tick)
	}

	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

// TicksAfter implements Store.
func (s *WALStore) TicksAfter(index uint64) ([]domain.TickRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("tick store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.TickRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, tickKeyPrefix) {
			continue
		}

		var tick domain.Tick
		if err := json.Unmarshal(payload, &tick); err != nil {
			return nil, errors.Wrap(err, "decode tick")
		}
		records = append(records, domain.TickRecord{Index: idx, Tick: tick})
	}

	return records, nil
}

// Close implements Store.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

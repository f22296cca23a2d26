// Package signals persists emitted trade signals in a WAL for the dashboard.
package signals

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

const (
	// DefaultDir is where the signal WAL lives unless configured otherwise.
	DefaultDir = "./wal/signals"

	segmentThreshold = 1000
	maxSegments      = 10

	signalKeyPrefix = "signal_"
)

// WALStore persists emitted signals.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) a signal WAL in dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "signal_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init signal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends an emitted signal.
func (s *WALStore) Save(signal domain.Signal) error {
	if s == nil || s.wal == nil {
		return errors.New("signal store is not initialized")
	}
	if signal.Symbol == "" {
		return errors.New("signal symbol is required")
	}

	payload, err := json.Marshal(signal)
	if err != nil {
		return errors.Wrap(err, "marshal signal")
	}

	key := fmt.Sprintf("%s%s", signalKeyPrefix, signal.Symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// SignalsAfter returns signals written after the provided index.
func (s *WALStore) SignalsAfter(index uint64) ([]domain.SignalRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("signal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.SignalRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, signalKeyPrefix) {
			continue
		}

		var signal domain.Signal
		if err := json.Unmarshal(payload, &signal); err != nil {
			return nil, errors.Wrap(err, "decode signal")
		}
		records = append(records, domain.SignalRecord{Index: idx, Signal: signal})
	}

	return records, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

package ticks

import (
	"context"
	"database/sql"

	// Postgres driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

const createTicksTable = `
CREATE TABLE IF NOT EXISTS ticks (
	id        BIGSERIAL PRIMARY KEY,
	symbol    TEXT NOT NULL,
	price     DOUBLE PRECISION NOT NULL,
	volume    BIGINT NOT NULL,
	bid_vol   BIGINT NOT NULL,
	ask_vol   BIGINT NOT NULL,
	ts        DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS ticks_symbol_ts_idx ON ticks (symbol, ts);`

// PostgresStore persists ticks in Postgres. An alternative to the WAL store
// when the dashboard runs on another host.
type PostgresStore struct {
	dsn string
	db  *sql.DB
}

// NewPostgresStore creates a store for the given connection string.
func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

// Connect implements Store: opens the pool and ensures the schema.
func (s *PostgresStore) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "ping postgres")
	}
	if _, err := db.ExecContext(ctx, createTicksTable); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "ensure ticks schema")
	}

	s.db = db
	return nil
}

// WriteTick implements Store.
func (s *PostgresStore) WriteTick(ctx context.Context, tick domain.Tick) error {
	if s.db == nil {
		return errors.New("postgres store is not connected")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ticks (symbol, price, volume, bid_vol, ask_vol, ts) VALUES ($1, $2, $3, $4, $5, $6)`,
		tick.Symbol, tick.Price, tick.Volume, tick.BidVol, tick.AskVol, tick.Timestamp)
	return errors.Wrap(err, "insert tick")
}

// QueryHistory implements Store: the most recent limit ticks, oldest first.
func (s *PostgresStore) QueryHistory(ctx context.Context, symbol string, limit int) ([]domain.Tick, error) {
	if s.db == nil {
		return nil, errors.New("postgres store is not connected")
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, price, volume, bid_vol, ask_vol, ts FROM ticks WHERE symbol = $1 ORDER BY ts DESC LIMIT $2`,
		symbol, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	var descending []domain.Tick
	for rows.Next() {
		var t domain.Tick
		if err := rows.Scan(&t.Symbol, &t.Price, &t.Volume, &t.BidVol, &t.AskVol, &t.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan tick")
		}
		descending = append(descending, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate ticks")
	}

	// back to ascending time for strategy pre-warm
	ascending := make([]domain.Tick, len(descending))
	for i, t := range descending {
		ascending[len(descending)-1-i] = t
	}
	return ascending, nil
}

// TicksAfter implements Store.
func (s *PostgresStore) TicksAfter(index uint64) ([]domain.TickRecord, error) {
	if s.db == nil {
		return nil, errors.New("postgres store is not connected")
	}

	rows, err := s.db.Query(
		`SELECT id, symbol, price, volume, bid_vol, ask_vol, ts FROM ticks WHERE id > $1 ORDER BY id ASC LIMIT 1000`,
		int64(index))
	if err != nil {
		return nil, errors.Wrap(err, "query ticks after")
	}
	defer rows.Close()

	var records []domain.TickRecord
	for rows.Next() {
		var (
			id int64
			t  domain.Tick
		)
		if err := rows.Scan(&id, &t.Symbol, &t.Price, &t.Volume, &t.BidVol, &t.AskVol, &t.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan tick")
		}
		records = append(records, domain.TickRecord{Index: uint64(id), Tick: t})
	}
	return records, errors.Wrap(rows.Err(), "iterate ticks")
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

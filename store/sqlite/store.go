// Package sqlite implements queue.Store on SQLite via database/sql and
// the mattn/go-sqlite3 driver. Snapshots live in a small key-value
// table; each Save is a single upsert, atomic under SQLite's
// transaction semantics. Suited to desktop or embedded clients that
// already carry a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver

	"github.com/KBH222/reliq/queue"
)

var _ queue.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS reliq_snapshots (
	storage_key TEXT PRIMARY KEY,
	data        BLOB NOT NULL,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Store implements queue.Store backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a Store over an open database handle. The caller owns
// the handle unless Open was used.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the SQLite database at path and
// returns a migrated Store that owns the handle.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Load returns the snapshot under storageKey, or (nil, nil) if no row
// exists.
func (s *Store) Load(ctx context.Context, storageKey string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM reliq_snapshots WHERE storage_key = ?`, storageKey,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load %q: %w", storageKey, err)
	}
	return data, nil
}

// Save upserts the snapshot under storageKey.
func (s *Store) Save(ctx context.Context, storageKey string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reliq_snapshots (storage_key, data, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(storage_key) DO UPDATE SET
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		storageKey, data,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save %q: %w", storageKey, err)
	}
	return nil
}

// Migrate creates the snapshot table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package store manages all SQLite persistence for chronos.
//
// SQLite in WAL mode is the shared document store: many stateless
// processes read and write the same database, and the single point of
// contention — the world clock row — is guarded by an opaque version
// token checked on every write (compare-and-swap), not by locks.
//
// The world clock's advancement history is decoupled from the hot row
// into its own append-only stream so that advancing the clock never
// rewrites history, and point-in-time queries never touch the hot row.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// retryOnContention wraps retryOp from retry.go with the default config.
// All store write operations should use this to handle transient SQLite
// errors (BUSY, LOCKED, IOERR_SHORT_READ) under concurrent access.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS world_clock (
		id            TEXT PRIMARY KEY,
		current_tick  INTEGER NOT NULL,
		initial_tick  INTEGER NOT NULL,
		last_advanced TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		version       TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_clock_history (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		clock_id    TEXT NOT NULL REFERENCES world_clock(id),
		at_ms       INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		reason      TEXT NOT NULL,
		tick_after  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_clock_at ON world_clock_history(clock_id, at_ms);

	CREATE TABLE IF NOT EXISTS player_clocks (
		player_id   TEXT PRIMARY KEY,
		clock_tick  INTEGER NOT NULL DEFAULT 0,
		last_action TEXT NOT NULL,
		last_drift  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS location_anchors (
		location_id TEXT PRIMARY KEY,
		anchor_tick INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger (
		id      TEXT PRIMARY KEY,
		scope   TEXT NOT NULL,
		kind    TEXT NOT NULL,
		at_ms   INTEGER NOT NULL,
		payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_scope_at ON ledger(scope, at_ms);
	CREATE INDEX IF NOT EXISTS idx_ledger_at ON ledger(at_ms);
	`
	_, err := s.db.Exec(schema)
	return err
}

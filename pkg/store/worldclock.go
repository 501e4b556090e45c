// worldclock.go persists the singleton world clock and its decoupled
// advancement history stream.
//
// The version token is an opaque UUID regenerated on every successful
// write. Advance is a compare-and-swap: the UPDATE carries the caller's
// token in its WHERE clause, and zero affected rows on an existing clock
// means another writer got there first.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillwork/chronos/pkg/model"
)

// GetWorldClock returns the singleton clock, or model.ErrNotFound if it
// has never been initialized.
func (s *Store) GetWorldClock() (*model.WorldClock, error) {
	row := s.db.QueryRow(
		`SELECT id, current_tick, initial_tick, last_advanced, created_at, version
		 FROM world_clock WHERE id = ?`, model.WorldClockID,
	)
	return scanWorldClock(row)
}

// InitializeWorldClock creates the singleton clock at initialTick using a
// conditional create: two concurrent first-initializers cannot both
// succeed, the loser gets model.ErrAlreadyInitialized.
func (s *Store) InitializeWorldClock(initialTick int64) (*model.WorldClock, error) {
	if initialTick < 0 {
		return nil, fmt.Errorf("initial tick %d: %w", initialTick, model.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	wc := &model.WorldClock{
		ID:           model.WorldClockID,
		CurrentTick:  initialTick,
		InitialTick:  initialTick,
		LastAdvanced: now,
		CreatedAt:    now,
		Version:      uuid.NewString(),
	}
	err := retryOnContention(func() error {
		res, err := s.db.Exec(
			`INSERT INTO world_clock (id, current_tick, initial_tick, last_advanced, created_at, version)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			wc.ID, wc.CurrentTick, wc.InitialTick,
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), wc.Version,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return model.ErrAlreadyInitialized
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyInitialized) {
			return nil, err
		}
		return nil, fmt.Errorf("initialize world clock: %w", err)
	}
	return wc, nil
}

// AdvanceWorldClock moves the clock forward by durationMs if and only if
// the stored version still matches expectedVersion. One transaction
// updates the hot row and appends one history record; a version mismatch
// leaves both untouched and returns model.ErrConcurrencyConflict.
func (s *Store) AdvanceWorldClock(durationMs int64, reason, expectedVersion string) (*model.WorldClock, error) {
	if durationMs <= 0 {
		return nil, fmt.Errorf("duration %dms: %w", durationMs, model.ErrInvalidArgument)
	}

	var updated *model.WorldClock
	err := retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		current, err := scanWorldClock(tx.QueryRow(
			`SELECT id, current_tick, initial_tick, last_advanced, created_at, version
			 FROM world_clock WHERE id = ?`, model.WorldClockID,
		))
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		next := &model.WorldClock{
			ID:           current.ID,
			CurrentTick:  current.CurrentTick + durationMs,
			InitialTick:  current.InitialTick,
			LastAdvanced: now,
			CreatedAt:    current.CreatedAt,
			Version:      uuid.NewString(),
		}

		// The CAS itself: the caller's token must still be current.
		res, err := tx.Exec(
			`UPDATE world_clock
			 SET current_tick = ?, last_advanced = ?, version = ?
			 WHERE id = ? AND version = ?`,
			next.CurrentTick, now.Format(time.RFC3339Nano), next.Version,
			model.WorldClockID, expectedVersion,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("version %q superseded: %w", expectedVersion, model.ErrConcurrencyConflict)
		}

		if _, err := tx.Exec(
			`INSERT INTO world_clock_history (clock_id, at_ms, duration_ms, reason, tick_after)
			 VALUES (?, ?, ?, ?, ?)`,
			model.WorldClockID, now.UnixMilli(), durationMs, reason, next.CurrentTick,
		); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit advance: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListAdvancements returns the most recent history records, newest first,
// capped at limit.
func (s *Store) ListAdvancements(limit int) ([]model.AdvancementRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT seq, at_ms, duration_ms, reason, tick_after
		 FROM world_clock_history WHERE clock_id = ?
		 ORDER BY seq DESC LIMIT ?`,
		model.WorldClockID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAdvancements(rows)
}

// LastAdvancementAt returns the latest history record whose timestamp is
// at or before t, or model.ErrNotFound if the clock had not been advanced
// by then.
func (s *Store) LastAdvancementAt(t time.Time) (*model.AdvancementRecord, error) {
	row := s.db.QueryRow(
		`SELECT seq, at_ms, duration_ms, reason, tick_after
		 FROM world_clock_history WHERE clock_id = ? AND at_ms <= ?
		 ORDER BY seq DESC LIMIT 1`,
		model.WorldClockID, t.UnixMilli(),
	)
	var r model.AdvancementRecord
	var atMs int64
	if err := row.Scan(&r.Seq, &atMs, &r.DurationMs, &r.Reason, &r.TickAfter); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	r.At = time.UnixMilli(atMs).UTC()
	return &r, nil
}

// CountAdvancements returns the length of the history stream.
func (s *Store) CountAdvancements() int64 {
	var n int64
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM world_clock_history WHERE clock_id = ?`, model.WorldClockID,
	).Scan(&n); err != nil {
		return 0
	}
	return n
}

func scanWorldClock(row *sql.Row) (*model.WorldClock, error) {
	var wc model.WorldClock
	var advStr, createdStr string
	if err := row.Scan(&wc.ID, &wc.CurrentTick, &wc.InitialTick, &advStr, &createdStr, &wc.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	var parseErr error
	wc.LastAdvanced, parseErr = time.Parse(time.RFC3339Nano, advStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parse last_advanced: %w", parseErr)
	}
	wc.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parse created_at: %w", parseErr)
	}
	return &wc, nil
}

func scanAdvancements(rows *sql.Rows) ([]model.AdvancementRecord, error) {
	var recs []model.AdvancementRecord
	for rows.Next() {
		var r model.AdvancementRecord
		var atMs int64
		if err := rows.Scan(&r.Seq, &atMs, &r.DurationMs, &r.Reason, &r.TickAfter); err != nil {
			return nil, err
		}
		r.At = time.UnixMilli(atMs).UTC()
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

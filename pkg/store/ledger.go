// ledger.go persists the immutable temporal ledger. Entries are
// append-only: the id is the idempotency key, and a repeated insert of
// the same id is a no-op (entries never change once written). Deletion
// happens only through retention expiry.
package store

import (
	"database/sql"
	"time"

	"github.com/quillwork/chronos/pkg/model"
)

// UpsertLedgerEntry writes one ledger entry. Idempotent by id: logging
// the same entry twice has no additional effect.
func (s *Store) UpsertLedgerEntry(e *model.LedgerEntry) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO ledger (id, scope, kind, at_ms, payload)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			e.ID, string(e.Scope), string(e.Kind), e.At.UnixMilli(), e.Payload,
		)
		return err
	})
}

// LedgerByScope returns entries for one scope, newest first, capped at limit.
func (s *Store) LedgerByScope(scope model.LedgerScope, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, scope, kind, at_ms, COALESCE(payload,'')
		 FROM ledger WHERE scope = ?
		 ORDER BY at_ms DESC, id DESC LIMIT ?`,
		string(scope), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

// LedgerByTimeRange returns entries with start <= at <= end, newest
// first, capped at limit.
func (s *Store) LedgerByTimeRange(start, end time.Time, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, scope, kind, at_ms, COALESCE(payload,'')
		 FROM ledger WHERE at_ms >= ? AND at_ms <= ?
		 ORDER BY at_ms DESC, id DESC LIMIT ?`,
		start.UnixMilli(), end.UnixMilli(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

// PurgeLedgerBefore deletes entries older than cutoff (retention expiry)
// and returns the number removed.
func (s *Store) PurgeLedgerBefore(cutoff time.Time) (int64, error) {
	var n int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(`DELETE FROM ledger WHERE at_ms < ?`, cutoff.UnixMilli())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func scanLedgerEntries(rows *sql.Rows) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var scope, kind string
		var atMs int64
		if err := rows.Scan(&e.ID, &scope, &kind, &atMs, &e.Payload); err != nil {
			return nil, err
		}
		e.Scope = model.LedgerScope(scope)
		e.Kind = model.LedgerEventKind(kind)
		e.At = time.UnixMilli(atMs).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

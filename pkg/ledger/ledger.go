// Package ledger implements the temporal ledger: an immutable,
// append-only audit trail of time-related events, keyed by scope (a
// player or the world clock) and time.
//
// The ledger is for audit and read reconstruction only, never the source
// of truth for the current tick. Writes are best-effort: a failed ledger
// write is logged and swallowed so it can never abort or roll back the
// clock mutation that triggered it.
package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quillwork/chronos/pkg/model"
	"github.com/quillwork/chronos/pkg/store"
)

// DefaultRetention is how long entries are kept before PurgeExpired
// removes them.
const DefaultRetention = 90 * 24 * time.Hour

// Ledger wraps the ledger store with the append-only, best-effort write
// policy and the standard queries.
type Ledger struct {
	store     store.LedgerStore
	log       zerolog.Logger
	retention time.Duration
}

// New builds a ledger with the default retention window.
func New(st store.LedgerStore, log zerolog.Logger) *Ledger {
	return &Ledger{store: st, log: log, retention: DefaultRetention}
}

// WithRetention overrides the retention window. Zero or negative values
// are ignored.
func (l *Ledger) WithRetention(d time.Duration) *Ledger {
	if d > 0 {
		l.retention = d
	}
	return l
}

// NewEntry builds a ledger entry with a fresh id, the current time, and
// payload marshaled to JSON. Callers that need idempotent re-logging set
// their own ID afterwards.
func NewEntry(scope model.LedgerScope, kind model.LedgerEventKind, payload any) *model.LedgerEntry {
	e := &model.LedgerEntry{
		ID:    uuid.NewString(),
		Scope: scope,
		Kind:  kind,
		At:    time.Now().UTC(),
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			e.Payload = string(b)
		}
	}
	return e
}

// Log writes one entry, best-effort. A store failure is logged at warn
// and swallowed; the caller's primary mutation already happened and must
// not be rolled back for the sake of the audit trail.
func (l *Ledger) Log(e *model.LedgerEntry) {
	if err := l.LogStrict(e); err != nil {
		l.log.Warn().Err(err).
			Str("scope", string(e.Scope)).
			Str("kind", string(e.Kind)).
			Msg("ledger write failed, entry dropped")
	}
}

// LogStrict writes one entry and surfaces the store error. Idempotent by
// id: repeating an entry has no additional effect.
func (l *Ledger) LogStrict(e *model.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return l.store.UpsertLedgerEntry(e)
}

// QueryByPlayer returns a player's entries, newest first.
func (l *Ledger) QueryByPlayer(playerID string, maxResults int) ([]model.LedgerEntry, error) {
	return l.store.LedgerByScope(model.PlayerScope(playerID), maxResults)
}

// QueryByWorldClock returns the world clock's entries, newest first.
func (l *Ledger) QueryByWorldClock(maxResults int) ([]model.LedgerEntry, error) {
	return l.store.LedgerByScope(model.WorldClockScope, maxResults)
}

// QueryByTimeRange returns entries with start <= at <= end, newest first.
func (l *Ledger) QueryByTimeRange(start, end time.Time, maxResults int) ([]model.LedgerEntry, error) {
	return l.store.LedgerByTimeRange(start, end, maxResults)
}

// PurgeExpired removes entries older than the retention window, measured
// from now. Returns the number removed.
func (l *Ledger) PurgeExpired(now time.Time) (int64, error) {
	return l.store.PurgeLedgerBefore(now.Add(-l.retention))
}

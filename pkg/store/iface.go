// iface.go defines the store contracts for dependency injection and
// testing.
//
// The concrete *Store type satisfies all of them. The service layers
// accept the narrow interface they need instead of *Store, so tests can
// inject fakes (e.g., a world clock store that forces version conflicts)
// without touching SQLite.
package store

import (
	"time"

	"github.com/quillwork/chronos/pkg/model"
)

// WorldClockStore is the persistence contract for the singleton clock
// and its advancement history stream.
type WorldClockStore interface {
	// GetWorldClock returns the clock, or model.ErrNotFound if absent.
	GetWorldClock() (*model.WorldClock, error)

	// InitializeWorldClock conditionally creates the clock at initialTick.
	// Fails with model.ErrAlreadyInitialized if one exists.
	InitializeWorldClock(initialTick int64) (*model.WorldClock, error)

	// AdvanceWorldClock appends one history record and bumps the clock,
	// iff the stored version matches expectedVersion.
	AdvanceWorldClock(durationMs int64, reason, expectedVersion string) (*model.WorldClock, error)

	// ListAdvancements returns recent history records, newest first.
	ListAdvancements(limit int) ([]model.AdvancementRecord, error)

	// LastAdvancementAt returns the latest record with timestamp <= t,
	// or model.ErrNotFound.
	LastAdvancementAt(t time.Time) (*model.AdvancementRecord, error)
}

// PlayerClockStore is the persistence contract for per-player clocks.
type PlayerClockStore interface {
	// GetPlayerClock retrieves a player's clock, or model.ErrNotFound.
	GetPlayerClock(playerID string) (*model.PlayerClock, error)

	// EnsurePlayerClock creates the clock on first contact. Idempotent.
	EnsurePlayerClock(playerID string, initialTick int64) (*model.PlayerClock, error)

	// SavePlayerClock writes back a player's clock state.
	SavePlayerClock(pc *model.PlayerClock) error
}

// AnchorStore is the location/graph collaborator boundary: a location's
// world-clock anchor is read as the reconciliation target and written
// when the Slow policy nudges it.
type AnchorStore interface {
	// GetWorldTickAnchor returns the anchor, or model.ErrNotFound.
	GetWorldTickAnchor(locationID string) (int64, error)

	// SetWorldTickAnchor creates or moves a location's anchor.
	SetWorldTickAnchor(locationID string, tick int64) error
}

// LedgerStore is the persistence contract for the temporal ledger.
type LedgerStore interface {
	// UpsertLedgerEntry writes one entry. Idempotent by id.
	UpsertLedgerEntry(e *model.LedgerEntry) error

	// LedgerByScope returns entries for one scope, newest first.
	LedgerByScope(scope model.LedgerScope, limit int) ([]model.LedgerEntry, error)

	// LedgerByTimeRange returns entries in [start, end], newest first.
	LedgerByTimeRange(start, end time.Time, limit int) ([]model.LedgerEntry, error)

	// PurgeLedgerBefore deletes entries older than cutoff.
	PurgeLedgerBefore(cutoff time.Time) (int64, error)
}

// Compile-time checks that *Store implements every contract.
var (
	_ WorldClockStore  = (*Store)(nil)
	_ PlayerClockStore = (*Store)(nil)
	_ AnchorStore      = (*Store)(nil)
	_ LedgerStore      = (*Store)(nil)
)

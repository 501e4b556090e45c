// Package model defines the core domain types for chronos.
//
// Chronos keeps a single authoritative notion of elapsed world time while
// letting individual player sessions drift from it:
//
//   - The WorldClock is a singleton advanced only through an optimistic
//     compare-and-swap on its version token. There is exactly one clock
//     authority; many stateless writers may race, and exactly one wins
//     each round.
//
//   - PlayerClocks drift ahead of or behind the world clock as players act
//     or idle, and are later reconciled to a location's world-tick anchor
//     through one of four policies (Snap, Wait, Slow, Compress).
//
//   - The ledger is an immutable, append-only audit trail of every temporal
//     event. It is never the source of truth for the current tick.
//
// All ticks are elapsed world-time milliseconds.
package model

import "time"

// WorldClockID is the well-known id of the singleton world clock row.
const WorldClockID = "global"

// WorldClock is the singleton authoritative clock. Version is an opaque
// token assigned by the store on every successful write; callers pass it
// back as a compare-and-swap precondition when advancing.
type WorldClock struct {
	ID           string    `json:"id"`
	CurrentTick  int64     `json:"current_tick"`
	InitialTick  int64     `json:"initial_tick"`
	LastAdvanced time.Time `json:"last_advanced"`
	CreatedAt    time.Time `json:"created_at"`
	Version      string    `json:"version"`
}

// AdvancementRecord is one entry in the world clock's append-only history
// stream. Records are strictly ordered by Seq and by TickAfter; existing
// records are never mutated.
type AdvancementRecord struct {
	Seq        int64     `json:"seq"`
	At         time.Time `json:"at"`
	DurationMs int64     `json:"duration_ms"`
	Reason     string    `json:"reason"`
	TickAfter  int64     `json:"tick_after"`
}

// PlayerClock is a player's private time state, partitioned per player.
// ClockTick only increases under AdvancePlayerTime and ApplyDrift;
// reconciliation may move it toward the world tick in either direction.
type PlayerClock struct {
	PlayerID   string    `json:"player_id"`
	ClockTick  int64     `json:"clock_tick"`
	LastAction time.Time `json:"last_action"`
	LastDrift  time.Time `json:"last_drift"`
}

// Offset returns the player's signed distance from worldTick.
// Positive means the player runs ahead of the world.
func (p *PlayerClock) Offset(worldTick int64) int64 {
	return p.ClockTick - worldTick
}

// ReconciliationMethod names the policy applied by one reconcile call.
type ReconciliationMethod string

const (
	// ReconcileSnap absorbs sub-epsilon offsets silently: the player tick
	// is set equal to the anchor in one step, no narrative.
	ReconcileSnap ReconciliationMethod = "snap"
	// ReconcileWait closes a player-behind gap by stepping the player tick
	// forward, bounded per call.
	ReconcileWait ReconciliationMethod = "wait"
	// ReconcileSlow nudges the location's effective anchor toward a
	// slightly-ahead player, bounded per call.
	ReconcileSlow ReconciliationMethod = "slow"
	// ReconcileCompress snaps a far-ahead player down to the anchor in one
	// step and signals that narrative compression occurred.
	ReconcileCompress ReconciliationMethod = "compress"
)

// LedgerScope keys ledger entries to the entity they describe.
type LedgerScope string

// PlayerScope returns the ledger scope key for a player.
func PlayerScope(playerID string) LedgerScope {
	return LedgerScope("player:" + playerID)
}

// WorldClockScope is the ledger scope key for the singleton clock.
const WorldClockScope = LedgerScope("wc:" + WorldClockID)

// LedgerEventKind enumerates the temporal events recorded in the ledger.
type LedgerEventKind string

const (
	EventWorldClockAdvanced LedgerEventKind = "World.Clock.Advanced"
	EventPlayerAdvanced     LedgerEventKind = "Player.Clock.Advanced"
	EventDriftApplied       LedgerEventKind = "Player.Clock.DriftApplied"
	EventReconciled         LedgerEventKind = "Player.Clock.Reconciled"
)

// LedgerEntry is one immutable audit record. ID is the idempotency key:
// logging the same entry twice is a no-op. Payload is event-specific JSON
// (durations, method, before/after ticks).
type LedgerEntry struct {
	ID      string          `json:"id"`
	Scope   LedgerScope     `json:"scope"`
	Kind    LedgerEventKind `json:"kind"`
	At      time.Time       `json:"at"`
	Payload string          `json:"payload,omitempty"`
}

// Package reconcile applies the per-player clock drift and
// reconciliation policy.
//
// A player's clock may run ahead of or behind the world clock. On
// location entry (or on demand) the player's tick is compared to the
// location's world-tick anchor and exactly one of four outcomes applies,
// chosen deterministically from offset = playerTick - anchor:
//
//	|offset| <= epsilon          Snap      noise, absorbed silently
//	offset < -epsilon            Wait      player behind, stepped forward
//	epsilon < offset <= slow     Slow      player ahead, anchor nudged
//	offset > slow                Compress  player far ahead, snapped down
//
// Wait and Slow are bounded per call; closing a large gap takes several
// reconcile calls. Once |offset| <= epsilon the policy is at its fixed
// point: repeated calls choose Snap and change nothing.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillwork/chronos/pkg/config"
	"github.com/quillwork/chronos/pkg/ledger"
	"github.com/quillwork/chronos/pkg/model"
	"github.com/quillwork/chronos/pkg/store"
	"github.com/quillwork/chronos/pkg/telemetry"
)

// WorldTickSource supplies the authoritative current tick, used for
// PlayerOffset. The world clock service satisfies it.
type WorldTickSource interface {
	CurrentTick() (int64, error)
}

// Reconciler drives player clocks toward the world clock.
type Reconciler struct {
	players   store.PlayerClockStore
	anchors   store.AnchorStore
	world     WorldTickSource
	cfg       config.Temporal
	ledger    *ledger.Ledger
	telemetry telemetry.Emitter
	log       zerolog.Logger
}

// New wires a reconciler. cfg must already be validated.
func New(
	players store.PlayerClockStore,
	anchors store.AnchorStore,
	world WorldTickSource,
	cfg config.Temporal,
	led *ledger.Ledger,
	tel telemetry.Emitter,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		players:   players,
		anchors:   anchors,
		world:     world,
		cfg:       cfg,
		ledger:    led,
		telemetry: tel,
		log:       log,
	}
}

// Outcome reports what one reconcile call did.
type Outcome struct {
	Method           model.ReconciliationMethod `json:"method"`
	PlayerTickBefore int64                      `json:"player_tick_before"`
	PlayerTickAfter  int64                      `json:"player_tick_after"`
	WorldClockTick   int64                      `json:"world_clock_tick"`
	// AnchorAfter is the location's effective anchor after the call;
	// it differs from WorldClockTick only under Slow.
	AnchorAfter int64 `json:"anchor_after"`
	// CompressedMs is how much player-ahead time was collapsed in one
	// step. Non-zero only under Compress; downstream narrative systems
	// consume it as the compression marker.
	CompressedMs int64 `json:"compressed_ms,omitempty"`
	// BeyondHorizon marks a compression larger than the compress
	// threshold.
	BeyondHorizon bool `json:"beyond_horizon,omitempty"`
}

// Reconcile compares playerID's tick to locationID's anchor and applies
// exactly one outcome. Every invocation, including the no-op Snap at the
// fixed point, writes one Player.Clock.Reconciled ledger entry.
func (r *Reconciler) Reconcile(playerID, locationID string) (*Outcome, error) {
	pc, err := r.players.GetPlayerClock(playerID)
	if err != nil {
		return nil, fmt.Errorf("reconcile player %q: %w", playerID, err)
	}
	anchor, err := r.anchors.GetWorldTickAnchor(locationID)
	if err != nil {
		return nil, fmt.Errorf("reconcile location %q: %w", locationID, err)
	}

	offset := pc.ClockTick - anchor
	out := &Outcome{
		PlayerTickBefore: pc.ClockTick,
		PlayerTickAfter:  pc.ClockTick,
		WorldClockTick:   anchor,
		AnchorAfter:      anchor,
	}

	switch {
	case abs(offset) <= r.cfg.EpsilonMs:
		// Sub-threshold noise: absorb silently, in one step.
		out.Method = model.ReconcileSnap
		out.PlayerTickAfter = anchor

	case offset < 0:
		// Player behind: step forward, bounded per call.
		out.Method = model.ReconcileWait
		out.PlayerTickAfter = pc.ClockTick + min64(-offset, r.cfg.WaitMaxStepMs)

	case offset <= r.cfg.SlowThresholdMs:
		// Player slightly ahead: the location's effective anchor moves
		// toward the player instead of the player moving back.
		out.Method = model.ReconcileSlow
		out.AnchorAfter = anchor + min64(offset, r.cfg.SlowMaxStepMs)

	default:
		// Player far ahead: collapse the gap in one step and signal how
		// much story time was compressed.
		out.Method = model.ReconcileCompress
		out.PlayerTickAfter = anchor
		out.CompressedMs = offset
		out.BeyondHorizon = offset > r.cfg.CompressThresholdMs
	}

	if out.PlayerTickAfter != pc.ClockTick {
		pc.ClockTick = out.PlayerTickAfter
		if err := r.players.SavePlayerClock(pc); err != nil {
			return nil, fmt.Errorf("reconcile save player %q: %w", playerID, err)
		}
	}
	if out.AnchorAfter != anchor {
		if err := r.anchors.SetWorldTickAnchor(locationID, out.AnchorAfter); err != nil {
			return nil, fmt.Errorf("reconcile nudge anchor %q: %w", locationID, err)
		}
	}

	r.ledger.Log(ledger.NewEntry(model.PlayerScope(playerID), model.EventReconciled, map[string]any{
		"player_tick_before":    out.PlayerTickBefore,
		"player_tick_after":     out.PlayerTickAfter,
		"world_clock_tick":      out.WorldClockTick,
		"reconciliation_method": string(out.Method),
		"compressed_ms":         out.CompressedMs,
	}))
	r.telemetry.Emit(string(model.EventReconciled), map[string]any{
		"method":           string(out.Method),
		"playerTickBefore": out.PlayerTickBefore,
		"playerTickAfter":  out.PlayerTickAfter,
		"worldClockTick":   out.WorldClockTick,
	})
	return out, nil
}

// AdvancePlayerTime moves a player's clock forward by durationMs for an
// in-world action. The clock row is created on first action.
func (r *Reconciler) AdvancePlayerTime(playerID string, durationMs int64, actionType string) (*model.PlayerClock, error) {
	if durationMs <= 0 {
		return nil, fmt.Errorf("duration %dms: %w", durationMs, model.ErrInvalidArgument)
	}
	pc, err := r.players.EnsurePlayerClock(playerID, 0)
	if err != nil {
		return nil, err
	}
	pc.ClockTick += durationMs
	pc.LastAction = time.Now().UTC()
	if err := r.players.SavePlayerClock(pc); err != nil {
		return nil, err
	}

	r.ledger.Log(ledger.NewEntry(model.PlayerScope(playerID), model.EventPlayerAdvanced, map[string]any{
		"duration_ms": durationMs,
		"action_type": actionType,
		"new_tick":    pc.ClockTick,
	}))
	r.telemetry.Emit(string(model.EventPlayerAdvanced), map[string]any{
		"durationMs": durationMs,
		"actionType": actionType,
		"newTick":    pc.ClockTick,
	})
	return pc, nil
}

// ApplyDrift advances a player's clock for idle real time, scaled by the
// drift rate and truncated to whole milliseconds.
func (r *Reconciler) ApplyDrift(playerID string, realElapsedMs int64) (*model.PlayerClock, error) {
	if realElapsedMs < 0 {
		return nil, fmt.Errorf("elapsed %dms: %w", realElapsedMs, model.ErrInvalidArgument)
	}
	pc, err := r.players.EnsurePlayerClock(playerID, 0)
	if err != nil {
		return nil, err
	}
	delta := int64(float64(realElapsedMs) * r.cfg.DriftRate)
	pc.ClockTick += delta
	pc.LastDrift = time.Now().UTC()
	if err := r.players.SavePlayerClock(pc); err != nil {
		return nil, err
	}

	r.ledger.Log(ledger.NewEntry(model.PlayerScope(playerID), model.EventDriftApplied, map[string]any{
		"real_elapsed_ms": realElapsedMs,
		"drift_ms":        delta,
		"new_tick":        pc.ClockTick,
	}))
	r.telemetry.Emit(string(model.EventDriftApplied), map[string]any{
		"realElapsedMs": realElapsedMs,
		"driftMs":       delta,
		"newTick":       pc.ClockTick,
	})
	return pc, nil
}

// PlayerOffset returns the player's signed distance from the current
// world tick. Positive means the player runs ahead.
func (r *Reconciler) PlayerOffset(playerID string) (int64, error) {
	pc, err := r.players.GetPlayerClock(playerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, fmt.Errorf("player %q: %w", playerID, model.ErrNotFound)
		}
		return 0, err
	}
	worldTick, err := r.world.CurrentTick()
	if err != nil {
		return 0, err
	}
	return pc.Offset(worldTick), nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

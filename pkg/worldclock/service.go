// Package worldclock orchestrates the authoritative world clock:
// read with auto-initialize, optimistic advancement with a bounded
// conflict retry loop, and point-in-time reconstruction from the
// advancement history stream.
//
// The service holds no state between calls. Every advancement re-reads
// the clock before recomputing — a stale delta is never blindly
// reapplied after a version conflict.
package worldclock

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillwork/chronos/pkg/ledger"
	"github.com/quillwork/chronos/pkg/model"
	"github.com/quillwork/chronos/pkg/store"
	"github.com/quillwork/chronos/pkg/telemetry"
)

// defaultMaxAttempts bounds the compare-and-swap retry loop in
// AdvanceTick. Attempts beyond this surface the conflict to the caller.
const defaultMaxAttempts = 4

// Service is the world clock orchestrator.
type Service struct {
	store       store.WorldClockStore
	ledger      *ledger.Ledger
	telemetry   telemetry.Emitter
	log         zerolog.Logger
	maxAttempts int
}

// New wires a service with the default retry budget.
func New(st store.WorldClockStore, led *ledger.Ledger, tel telemetry.Emitter, log zerolog.Logger) *Service {
	return &Service{
		store:       st,
		ledger:      led,
		telemetry:   tel,
		log:         log,
		maxAttempts: defaultMaxAttempts,
	}
}

// WithMaxAttempts overrides the CAS retry budget. Values below 1 are
// ignored.
func (s *Service) WithMaxAttempts(n int) *Service {
	if n >= 1 {
		s.maxAttempts = n
	}
	return s
}

// CurrentTick returns the clock's tick, creating the clock at tick 0 if
// it does not exist yet.
func (s *Service) CurrentTick() (int64, error) {
	wc, err := s.ensure()
	if err != nil {
		return 0, err
	}
	return wc.CurrentTick, nil
}

// Clock returns the full clock document, auto-initializing if absent.
func (s *Service) Clock() (*model.WorldClock, error) {
	return s.ensure()
}

// ensure reads the clock, initializing it at tick 0 when absent. Losing
// the first-initialize race to another process is not an error: the
// conditional create fails, we re-read, and proceed.
func (s *Service) ensure() (*model.WorldClock, error) {
	wc, err := s.store.GetWorldClock()
	if err == nil {
		return wc, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	wc, err = s.store.InitializeWorldClock(0)
	if err == nil {
		s.log.Info().Msg("world clock initialized at tick 0")
		return wc, nil
	}
	if errors.Is(err, model.ErrAlreadyInitialized) {
		return s.store.GetWorldClock()
	}
	return nil, err
}

// AdvanceTick moves the world clock forward by durationMs, retrying a
// bounded number of times on version conflicts. Each retry re-reads the
// clock so the advancement is recomputed against fresh state. Emits one
// ledger entry and one telemetry event on success and returns the new
// tick.
func (s *Service) AdvanceTick(durationMs int64, reason string) (int64, error) {
	if durationMs <= 0 {
		return 0, fmt.Errorf("duration %dms: %w", durationMs, model.ErrInvalidArgument)
	}

	wc, err := s.ensure()
	if err != nil {
		return 0, err
	}
	for attempt := 1; ; attempt++ {
		updated, err := s.store.AdvanceWorldClock(durationMs, reason, wc.Version)
		if err == nil {
			s.ledger.Log(ledger.NewEntry(model.WorldClockScope, model.EventWorldClockAdvanced, map[string]any{
				"duration_ms": durationMs,
				"new_tick":    updated.CurrentTick,
				"reason":      reason,
			}))
			s.telemetry.Emit(string(model.EventWorldClockAdvanced), map[string]any{
				"durationMs": durationMs,
				"newTick":    updated.CurrentTick,
				"reason":     reason,
			})
			return updated.CurrentTick, nil
		}
		if !errors.Is(err, model.ErrConcurrencyConflict) {
			return 0, err
		}
		if attempt >= s.maxAttempts {
			return 0, fmt.Errorf("advance exhausted %d attempts: %w: %w",
				s.maxAttempts, model.ErrUnavailable, model.ErrConcurrencyConflict)
		}
		s.log.Debug().Int("attempt", attempt).Msg("world clock version conflict, re-reading")
		wc, err = s.store.GetWorldClock()
		if err != nil {
			return 0, err
		}
	}
}

// TickAt reconstructs the tick effective at a past instant from the
// history stream. ok is false when the clock did not exist at t (no
// clock at all, or t precedes its creation). A t after creation but
// before the first advancement resolves to the initial tick; a t past
// the last advancement resolves to that advancement's tick.
func (s *Service) TickAt(t time.Time) (tick int64, ok bool, err error) {
	wc, err := s.store.GetWorldClock()
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if t.Before(wc.CreatedAt) {
		return 0, false, nil
	}
	rec, err := s.store.LastAdvancementAt(t)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return wc.InitialTick, true, nil
		}
		return 0, false, err
	}
	return rec.TickAfter, true, nil
}

// History returns the most recent advancement records, newest first.
func (s *Service) History(limit int) ([]model.AdvancementRecord, error) {
	return s.store.ListAdvancements(limit)
}

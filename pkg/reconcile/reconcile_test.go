package reconcile

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quillwork/chronos/pkg/config"
	"github.com/quillwork/chronos/pkg/ledger"
	"github.com/quillwork/chronos/pkg/model"
	"github.com/quillwork/chronos/pkg/store"
	"github.com/quillwork/chronos/pkg/telemetry"
	"github.com/quillwork/chronos/pkg/worldclock"
)

type fixture struct {
	rec   *Reconciler
	store *store.Store
	clock *worldclock.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	log := zerolog.Nop()
	led := ledger.New(s, log)
	clock := worldclock.New(s, led, telemetry.Nop{}, log)
	rec := New(s, s, clock, config.Default(), led, telemetry.Nop{}, log)
	return &fixture{rec: rec, store: s, clock: clock}
}

// seedPlayer creates a player clock at the given tick.
func (f *fixture) seedPlayer(t *testing.T, playerID string, tick int64) {
	t.Helper()
	pc, err := f.store.EnsurePlayerClock(playerID, 0)
	if err != nil {
		t.Fatal(err)
	}
	pc.ClockTick = tick
	if err := f.store.SavePlayerClock(pc); err != nil {
		t.Fatal(err)
	}
}

func TestReconcile_SnapWithinEpsilon(t *testing.T) {
	f := newFixture(t)
	// Player 4000ms behind the anchor: well inside the 300000ms epsilon.
	f.seedPlayer(t, "alice", 100_000)
	if err := f.store.SetWorldTickAnchor("tavern", 104_000); err != nil {
		t.Fatal(err)
	}

	out, err := f.rec.Reconcile("alice", "tavern")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.Method != model.ReconcileSnap {
		t.Fatalf("method = %s, want snap", out.Method)
	}
	if out.PlayerTickAfter != 104_000 {
		t.Fatalf("player tick = %d, want 104000 in one step", out.PlayerTickAfter)
	}
	if out.CompressedMs != 0 {
		t.Fatal("snap must not produce a compression marker")
	}

	pc, _ := f.store.GetPlayerClock("alice")
	if pc.ClockTick != 104_000 {
		t.Fatalf("persisted tick = %d, want 104000", pc.ClockTick)
	}
}

func TestReconcile_SnapIdempotentAtFixedPoint(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "alice", 100_000)
	if err := f.store.SetWorldTickAnchor("tavern", 104_000); err != nil {
		t.Fatal(err)
	}

	if _, err := f.rec.Reconcile("alice", "tavern"); err != nil {
		t.Fatal(err)
	}
	// No intervening advancement: the second call must choose Snap and
	// change nothing.
	out, err := f.rec.Reconcile("alice", "tavern")
	if err != nil {
		t.Fatal(err)
	}
	if out.Method != model.ReconcileSnap {
		t.Fatalf("method = %s, want snap", out.Method)
	}
	if out.PlayerTickBefore != out.PlayerTickAfter {
		t.Fatalf("fixed point moved: %d -> %d", out.PlayerTickBefore, out.PlayerTickAfter)
	}
}

func TestReconcile_WaitStepsBoundedAndConverges(t *testing.T) {
	f := newFixture(t)
	// Player 10,000,000ms behind: between the slow and compress
	// thresholds in magnitude, negative sign means Wait.
	f.seedPlayer(t, "alice", 0)
	if err := f.store.SetWorldTickAnchor("tavern", 10_000_000); err != nil {
		t.Fatal(err)
	}

	out, err := f.rec.Reconcile("alice", "tavern")
	if err != nil {
		t.Fatal(err)
	}
	if out.Method != model.ReconcileWait {
		t.Fatalf("method = %s, want wait", out.Method)
	}
	// One step, bounded by waitMaxStepMs.
	if out.PlayerTickAfter != config.Default().WaitMaxStepMs {
		t.Fatalf("player tick = %d, want one wait step of %d", out.PlayerTickAfter, config.Default().WaitMaxStepMs)
	}

	// Repeated calls close the gap without overshooting.
	for i := 0; i < 20; i++ {
		if _, err := f.rec.Reconcile("alice", "tavern"); err != nil {
			t.Fatal(err)
		}
	}
	pc, _ := f.store.GetPlayerClock("alice")
	if pc.ClockTick != 10_000_000 {
		t.Fatalf("player tick after convergence = %d, want 10000000", pc.ClockTick)
	}
}

func TestReconcile_SlowNudgesAnchor(t *testing.T) {
	f := newFixture(t)
	// Player 2,000,000ms ahead: above epsilon, at or below the slow
	// threshold, so the anchor moves toward the player.
	f.seedPlayer(t, "alice", 2_000_000)
	if err := f.store.SetWorldTickAnchor("tavern", 0); err != nil {
		t.Fatal(err)
	}

	out, err := f.rec.Reconcile("alice", "tavern")
	if err != nil {
		t.Fatal(err)
	}
	if out.Method != model.ReconcileSlow {
		t.Fatalf("method = %s, want slow", out.Method)
	}
	if out.PlayerTickAfter != 2_000_000 {
		t.Fatalf("slow must not move the player, got %d", out.PlayerTickAfter)
	}
	if out.AnchorAfter != config.Default().SlowMaxStepMs {
		t.Fatalf("anchor = %d, want one slow step of %d", out.AnchorAfter, config.Default().SlowMaxStepMs)
	}

	// The nudged anchor is persisted.
	tick, err := f.store.GetWorldTickAnchor("tavern")
	if err != nil {
		t.Fatal(err)
	}
	if tick != out.AnchorAfter {
		t.Fatalf("persisted anchor = %d, want %d", tick, out.AnchorAfter)
	}
}

func TestReconcile_CompressSnapsDownInOneStep(t *testing.T) {
	f := newFixture(t)
	// Player 10,000,000ms ahead: beyond the slow threshold.
	f.seedPlayer(t, "alice", 10_000_000)
	if err := f.store.SetWorldTickAnchor("tavern", 0); err != nil {
		t.Fatal(err)
	}

	out, err := f.rec.Reconcile("alice", "tavern")
	if err != nil {
		t.Fatal(err)
	}
	if out.Method != model.ReconcileCompress {
		t.Fatalf("method = %s, want compress", out.Method)
	}
	if out.PlayerTickAfter != 0 {
		t.Fatalf("player tick = %d, want 0 in one step", out.PlayerTickAfter)
	}
	if out.CompressedMs != 10_000_000 {
		t.Fatalf("compressed = %dms, want 10000000", out.CompressedMs)
	}
	if out.BeyondHorizon {
		t.Fatal("10000000ms is below the compress threshold, horizon flag should be off")
	}
}

func TestReconcile_CompressBeyondHorizon(t *testing.T) {
	f := newFixture(t)
	// Ahead by more than the compress threshold itself.
	f.seedPlayer(t, "alice", 100_000_000)
	if err := f.store.SetWorldTickAnchor("tavern", 0); err != nil {
		t.Fatal(err)
	}

	out, err := f.rec.Reconcile("alice", "tavern")
	if err != nil {
		t.Fatal(err)
	}
	if out.Method != model.ReconcileCompress || !out.BeyondHorizon {
		t.Fatalf("got method=%s horizon=%v, want compress beyond horizon", out.Method, out.BeyondHorizon)
	}
}

func TestReconcile_BoundaryDeterminism(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		name   string
		offset int64
		want   model.ReconciliationMethod
	}{
		{"exactly +epsilon is snap", cfg.EpsilonMs, model.ReconcileSnap},
		{"exactly -epsilon is snap", -cfg.EpsilonMs, model.ReconcileSnap},
		{"just above epsilon is slow", cfg.EpsilonMs + 1, model.ReconcileSlow},
		{"just below -epsilon is wait", -cfg.EpsilonMs - 1, model.ReconcileWait},
		{"exactly slow threshold is slow, not compress", cfg.SlowThresholdMs, model.ReconcileSlow},
		{"just above slow threshold is compress", cfg.SlowThresholdMs + 1, model.ReconcileCompress},
		{"exactly -slow threshold is wait", -cfg.SlowThresholdMs, model.ReconcileWait},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			const anchor = 200_000_000
			f.seedPlayer(t, "alice", anchor+tt.offset)
			if err := f.store.SetWorldTickAnchor("tavern", anchor); err != nil {
				t.Fatal(err)
			}
			out, err := f.rec.Reconcile("alice", "tavern")
			if err != nil {
				t.Fatal(err)
			}
			if out.Method != tt.want {
				t.Fatalf("offset %d: method = %s, want %s", tt.offset, out.Method, tt.want)
			}
		})
	}
}

func TestReconcile_WritesLedgerEntry(t *testing.T) {
	f := newFixture(t)
	f.seedPlayer(t, "alice", 100_000)
	if err := f.store.SetWorldTickAnchor("tavern", 104_000); err != nil {
		t.Fatal(err)
	}

	if _, err := f.rec.Reconcile("alice", "tavern"); err != nil {
		t.Fatal(err)
	}
	entries, err := f.store.LedgerByScope(model.PlayerScope("alice"), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Kind != model.EventReconciled {
		t.Fatalf("ledger = %+v, want one Player.Clock.Reconciled", entries)
	}
}

func TestReconcile_NotFound(t *testing.T) {
	f := newFixture(t)

	if _, err := f.rec.Reconcile("ghost", "tavern"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown player: got %v, want ErrNotFound", err)
	}

	f.seedPlayer(t, "alice", 0)
	if _, err := f.rec.Reconcile("alice", "nowhere"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown location: got %v, want ErrNotFound", err)
	}
}

func TestAdvancePlayerTime(t *testing.T) {
	f := newFixture(t)

	// First action creates the clock.
	pc, err := f.rec.AdvancePlayerTime("alice", 5000, "travel")
	if err != nil {
		t.Fatalf("AdvancePlayerTime: %v", err)
	}
	if pc.ClockTick != 5000 {
		t.Fatalf("tick = %d, want 5000", pc.ClockTick)
	}

	pc, err = f.rec.AdvancePlayerTime("alice", 2500, "rest")
	if err != nil {
		t.Fatal(err)
	}
	if pc.ClockTick != 7500 {
		t.Fatalf("tick = %d, want 7500", pc.ClockTick)
	}
	if pc.LastAction.IsZero() {
		t.Fatal("lastAction should be set")
	}
}

func TestAdvancePlayerTime_InvalidDuration(t *testing.T) {
	f := newFixture(t)
	for _, d := range []int64{0, -100} {
		if _, err := f.rec.AdvancePlayerTime("alice", d, "travel"); !errors.Is(err, model.ErrInvalidArgument) {
			t.Fatalf("AdvancePlayerTime(%d): got %v, want ErrInvalidArgument", d, err)
		}
	}
	// The rejected call must not have created the player.
	if _, err := f.store.GetPlayerClock("alice"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("rejected advance created state: %v", err)
	}
}

func TestApplyDrift(t *testing.T) {
	f := newFixture(t)

	pc, err := f.rec.ApplyDrift("alice", 10_000)
	if err != nil {
		t.Fatalf("ApplyDrift: %v", err)
	}
	// Default drift rate is 1.0: tick advances 1:1 with real time.
	if pc.ClockTick != 10_000 {
		t.Fatalf("tick = %d, want 10000", pc.ClockTick)
	}
	if pc.LastDrift.IsZero() {
		t.Fatal("lastDrift should be set")
	}
}

func TestApplyDrift_ScaledRate(t *testing.T) {
	f := newFixture(t)
	cfg := config.Default()
	cfg.DriftRate = 0.5
	f.rec.cfg = cfg

	pc, err := f.rec.ApplyDrift("alice", 10_000)
	if err != nil {
		t.Fatal(err)
	}
	if pc.ClockTick != 5000 {
		t.Fatalf("tick = %d with rate 0.5, want 5000", pc.ClockTick)
	}
}

func TestApplyDrift_NegativeElapsed(t *testing.T) {
	f := newFixture(t)
	if _, err := f.rec.ApplyDrift("alice", -1); !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}

func TestApplyDrift_ZeroElapsedAllowed(t *testing.T) {
	f := newFixture(t)
	pc, err := f.rec.ApplyDrift("alice", 0)
	if err != nil {
		t.Fatalf("zero elapsed should be accepted: %v", err)
	}
	if pc.ClockTick != 0 {
		t.Fatalf("tick = %d, want 0", pc.ClockTick)
	}
}

func TestPlayerOffset(t *testing.T) {
	f := newFixture(t)

	if _, err := f.rec.PlayerOffset("ghost"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown player: got %v, want ErrNotFound", err)
	}

	// World at 5000, player at 8000: 3000 ahead.
	if _, err := f.clock.AdvanceTick(5000, "scheduled"); err != nil {
		t.Fatal(err)
	}
	f.seedPlayer(t, "alice", 8000)

	offset, err := f.rec.PlayerOffset("alice")
	if err != nil {
		t.Fatal(err)
	}
	if offset != 3000 {
		t.Fatalf("offset = %d, want 3000 (positive = ahead)", offset)
	}
}

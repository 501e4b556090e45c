package ledger

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillwork/chronos/pkg/model"
	"github.com/quillwork/chronos/pkg/store"
)

func newTestLedger(t *testing.T) (*Ledger, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, zerolog.Nop()), s
}

func TestLogStrict_FillsIDAndTimestamp(t *testing.T) {
	l, _ := newTestLedger(t)
	e := &model.LedgerEntry{Scope: model.PlayerScope("alice"), Kind: model.EventPlayerAdvanced}
	if err := l.LogStrict(e); err != nil {
		t.Fatalf("LogStrict: %v", err)
	}
	if e.ID == "" {
		t.Fatal("id should be generated")
	}
	if e.At.IsZero() {
		t.Fatal("timestamp should be set")
	}
}

func TestLogStrict_IdempotentByID(t *testing.T) {
	l, _ := newTestLedger(t)
	e := NewEntry(model.PlayerScope("alice"), model.EventReconciled, map[string]any{"n": 1})
	if err := l.LogStrict(e); err != nil {
		t.Fatal(err)
	}
	if err := l.LogStrict(e); err != nil {
		t.Fatal(err)
	}

	entries, err := l.QueryByPlayer("alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries after repeated log, want 1", len(entries))
	}
}

// failingStore always rejects writes, standing in for a store outage.
type failingStore struct {
	store.LedgerStore
}

func (failingStore) UpsertLedgerEntry(*model.LedgerEntry) error {
	return errors.New("SQLITE_IOERR: disk gone")
}

func TestLog_SwallowsStoreFailure(t *testing.T) {
	l := New(failingStore{}, zerolog.Nop())
	// Must not panic or propagate: the triggering mutation already
	// happened and the audit trail is best-effort.
	l.Log(NewEntry(model.WorldClockScope, model.EventWorldClockAdvanced, nil))
}

func TestQueries(t *testing.T) {
	l, _ := newTestLedger(t)
	base := time.Now().UTC().Add(-time.Hour)

	for i, scope := range []model.LedgerScope{
		model.PlayerScope("alice"),
		model.PlayerScope("alice"),
		model.WorldClockScope,
	} {
		e := NewEntry(scope, model.EventReconciled, nil)
		e.At = base.Add(time.Duration(i) * time.Minute)
		if err := l.LogStrict(e); err != nil {
			t.Fatal(err)
		}
	}

	byPlayer, err := l.QueryByPlayer("alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(byPlayer) != 2 {
		t.Fatalf("player entries = %d, want 2", len(byPlayer))
	}

	byWorld, err := l.QueryByWorldClock(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(byWorld) != 1 {
		t.Fatalf("world entries = %d, want 1", len(byWorld))
	}

	inRange, err := l.QueryByTimeRange(base, base.Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(inRange) != 2 {
		t.Fatalf("range entries = %d, want 2", len(inRange))
	}
}

func TestPurgeExpired(t *testing.T) {
	l, _ := newTestLedger(t)
	now := time.Now().UTC()

	old := NewEntry(model.PlayerScope("alice"), model.EventDriftApplied, nil)
	old.At = now.Add(-91 * 24 * time.Hour)
	fresh := NewEntry(model.PlayerScope("alice"), model.EventDriftApplied, nil)
	if err := l.LogStrict(old); err != nil {
		t.Fatal(err)
	}
	if err := l.LogStrict(fresh); err != nil {
		t.Fatal(err)
	}

	n, err := l.PurgeExpired(now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}

	entries, err := l.QueryByPlayer("alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != fresh.ID {
		t.Fatalf("wrong survivor: %+v", entries)
	}
}

func TestWithRetention(t *testing.T) {
	l, _ := newTestLedger(t)
	l.WithRetention(24 * time.Hour)

	old := NewEntry(model.PlayerScope("alice"), model.EventDriftApplied, nil)
	old.At = time.Now().UTC().Add(-48 * time.Hour)
	if err := l.LogStrict(old); err != nil {
		t.Fatal(err)
	}

	n, err := l.PurgeExpired(time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("purged %d with 24h retention, want 1", n)
	}
}

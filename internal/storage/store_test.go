package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"haseela/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "haseela.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadStateNotFound(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.LoadState(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := core.NewState()
	state, err := core.AddClient("Acme")(state)
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	wrote := time.Date(2025, 8, 14, 10, 30, 0, 0, time.UTC)

	if err := store.SaveState(ctx, state, wrote); err != nil {
		t.Fatalf("save state: %v", err)
	}

	got, updatedAt, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if len(got.Clients) != 1 || got.Clients[0].Name != "Acme" {
		t.Fatalf("unexpected state: %+v", got)
	}
	if !updatedAt.Equal(wrote) {
		t.Fatalf("updated_at: got %v, want %v", updatedAt, wrote)
	}
}

func TestSaveStateOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := core.NewState()
	first, _ = core.AddClient("First")(first)
	if err := store.SaveState(ctx, first, time.Now()); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := core.NewState()
	second, _ = core.AddClient("Second")(second)
	later := time.Now().Add(time.Minute)
	if err := store.SaveState(ctx, second, later); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, _, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if len(got.Clients) != 1 || got.Clients[0].Name != "Second" {
		t.Fatalf("overwrite failed: %+v", got)
	}
}

func TestClearState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveState(ctx, core.NewState(), time.Now()); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if err := store.ClearState(ctx); err != nil {
		t.Fatalf("clear state: %v", err)
	}
	if _, _, err := store.LoadState(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestStateSnapshotIsRawDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := core.NewState()
	if err := store.SaveState(ctx, state, time.Now()); err != nil {
		t.Fatalf("save state: %v", err)
	}

	snap, err := store.StateSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	decoded, err := core.DecodeState(snap.Doc)
	if err != nil {
		t.Fatalf("snapshot doc must decode: %v", err)
	}
	if decoded.Currency != core.DefaultCurrency {
		t.Fatalf("unexpected currency: %q", decoded.Currency)
	}
}

func TestSessionSlotIndependentOfState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, []byte(`{"user_id":"u1"}`)); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.SaveState(ctx, core.NewState(), time.Now()); err != nil {
		t.Fatalf("save state: %v", err)
	}

	if err := store.ClearState(ctx); err != nil {
		t.Fatalf("clear state: %v", err)
	}
	doc, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("session must survive a state clear: %v", err)
	}
	if string(doc) != `{"user_id":"u1"}` {
		t.Fatalf("unexpected session doc: %s", doc)
	}

	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	if _, err := store.LoadSession(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

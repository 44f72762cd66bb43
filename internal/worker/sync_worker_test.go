package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"haseela/internal/amqp"
	"haseela/internal/core"
	"haseela/internal/remote"
	"haseela/internal/remote/memory"
	"haseela/internal/storage"
)

func newWorkerFixture(t *testing.T) (*SyncWorker, *storage.SQLiteStore, *memory.Store) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "haseela.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	remoteStore := memory.New()
	return NewSyncWorker(store, remoteStore), store, remoteStore
}

func TestHandleSyncMessageMirrorsSnapshot(t *testing.T) {
	worker, store, remoteStore := newWorkerFixture(t)
	ctx := context.Background()

	state := core.NewState()
	state, _ = core.AddClient("Acme")(state)
	wrote := time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)
	if err := store.SaveState(ctx, state, wrote); err != nil {
		t.Fatalf("save state: %v", err)
	}

	msg := amqp.NewStateSyncMessage("u1", wrote)
	if err := worker.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	rec, err := remoteStore.Fetch(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch remote: %v", err)
	}
	mirrored, err := core.DecodeState(rec.Doc)
	if err != nil {
		t.Fatalf("decode mirrored doc: %v", err)
	}
	if len(mirrored.Clients) != 1 || mirrored.Clients[0].Name != "Acme" {
		t.Fatalf("mirror mismatch: %+v", mirrored)
	}
	if !rec.UpdatedAt.Equal(wrote) {
		t.Fatalf("record timestamp: got %v, want %v", rec.UpdatedAt, wrote)
	}
}

func TestRedeliveredMessageShipsLatestSnapshot(t *testing.T) {
	worker, store, remoteStore := newWorkerFixture(t)
	ctx := context.Background()

	old := core.NewState()
	old, _ = core.AddClient("Old")(old)
	firstWrite := time.Now().Add(-time.Hour)
	if err := store.SaveState(ctx, old, firstWrite); err != nil {
		t.Fatalf("save state: %v", err)
	}
	// The snapshot moved on before the stale nudge arrives.
	latest := core.NewState()
	latest, _ = core.AddClient("Latest")(latest)
	if err := store.SaveState(ctx, latest, time.Now()); err != nil {
		t.Fatalf("save state: %v", err)
	}

	stale := amqp.NewStateSyncMessage("u1", firstWrite)
	if err := worker.HandleSyncMessage(ctx, stale); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	rec, _ := remoteStore.Fetch(ctx, "u1")
	mirrored, _ := core.DecodeState(rec.Doc)
	if len(mirrored.Clients) != 1 || mirrored.Clients[0].Name != "Latest" {
		t.Fatalf("stale nudge must still ship the latest snapshot: %+v", mirrored)
	}
}

func TestHandleSyncMessageWithoutSnapshot(t *testing.T) {
	worker, _, remoteStore := newWorkerFixture(t)
	ctx := context.Background()

	msg := amqp.NewStateSyncMessage("u1", time.Now())
	if err := worker.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("missing snapshot must not fail: %v", err)
	}
	if _, err := remoteStore.Fetch(ctx, "u1"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("nothing should be mirrored, got %v", err)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	worker, store, remoteStore := newWorkerFixture(t)
	ctx := context.Background()

	state := core.NewState()
	state, _ = core.AddClient("Recovered")(state)
	if err := store.SaveState(ctx, state, time.Now()); err != nil {
		t.Fatalf("save state: %v", err)
	}

	if err := worker.StartupSyncCheck(ctx, "u1"); err != nil {
		t.Fatalf("startup sync: %v", err)
	}
	if _, err := remoteStore.Fetch(ctx, "u1"); err != nil {
		t.Fatalf("startup sync must mirror: %v", err)
	}

	// No signed-in user means no work and no error.
	if err := worker.StartupSyncCheck(ctx, ""); err != nil {
		t.Fatalf("empty user id: %v", err)
	}
}

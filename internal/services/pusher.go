package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"haseela/internal/remote"
	"haseela/internal/storage"
)

// SnapshotSource yields the raw persisted state document. Reading the
// snapshot rather than the in-memory state means a push always ships
// exactly what survived the local write.
type SnapshotSource interface {
	StateSnapshot(ctx context.Context) (storage.Snapshot, error)
}

// DirectPusher replicates synchronously in-process. It is the default
// transport when no message broker is configured.
type DirectPusher struct {
	local  SnapshotSource
	remote remote.Store
}

func NewDirectPusher(local SnapshotSource, remoteStore remote.Store) *DirectPusher {
	return &DirectPusher{local: local, remote: remoteStore}
}

var _ Pusher = (*DirectPusher)(nil)

func (p *DirectPusher) Push(ctx context.Context, userID string, updatedAt time.Time) error {
	snap, err := p.local.StateSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	rec := remote.Record{Doc: snap.Doc, UpdatedAt: snap.UpdatedAt}
	if err := p.remote.Upsert(ctx, userID, rec); err != nil {
		return fmt.Errorf("upsert remote record: %w", err)
	}

	slog.DebugContext(ctx, "State replicated",
		"user_id", userID, "updated_at", snap.UpdatedAt)
	return nil
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"haseela/internal/amqp"
	"haseela/internal/remote"
	"haseela/internal/services"
	"haseela/internal/storage"
)

// SyncWorker replicates the local snapshot to the remote store out of
// process. Messages carry no document, only a nudge: the worker always
// ships whatever snapshot is current, so a redelivered or out-of-order
// message converges on the same remote record.
type SyncWorker struct {
	local  services.SnapshotSource
	remote remote.Store
}

func NewSyncWorker(local services.SnapshotSource, remoteStore remote.Store) *SyncWorker {
	return &SyncWorker{local: local, remote: remoteStore}
}

// HandleSyncMessage processes one replication nudge from the queue.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.StateSyncMessage) error {
	slog.InfoContext(ctx, "Processing state sync message",
		"user_id", msg.UserID,
		"updated_at", msg.UpdatedAt)

	return w.mirror(ctx, msg.UserID)
}

// StartupSyncCheck pushes the current snapshot once at boot so a write
// whose nudge was lost during downtime still reaches the remote store.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context, userID string) error {
	if userID == "" {
		slog.InfoContext(ctx, "No signed-in user on startup, skipping sync check")
		return nil
	}
	if err := w.mirror(ctx, userID); err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	return nil
}

// PeriodicSync runs the same mirror on a timer as a backstop for lost
// messages. Failures are logged and retried on the next tick.
func (w *SyncWorker) PeriodicSync(ctx context.Context, userID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if userID == "" {
				continue
			}
			if err := w.mirror(ctx, userID); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "user_id", userID, "error", err)
			}
		}
	}
}

// mirror copies the local snapshot to the remote store. A missing local
// snapshot is not an error: nothing has been written yet.
func (w *SyncWorker) mirror(ctx context.Context, userID string) error {
	snap, err := w.local.StateSnapshot(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		slog.DebugContext(ctx, "No local snapshot yet, nothing to mirror", "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	rec := remote.Record{Doc: snap.Doc, UpdatedAt: snap.UpdatedAt}
	if err := w.remote.Upsert(ctx, userID, rec); err != nil {
		return fmt.Errorf("upsert remote record: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot mirrored to remote store",
		"user_id", userID,
		"updated_at", snap.UpdatedAt,
		"doc_bytes", len(snap.Doc))
	return nil
}

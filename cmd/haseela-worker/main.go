package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"haseela/internal/amqp"
	"haseela/internal/cli"
	"haseela/internal/identity"
	"haseela/internal/remote"
	gsheet "haseela/internal/remote/google"
	"haseela/internal/remote/memory"
	"haseela/internal/storage"
	"haseela/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting haseela-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var remoteStore remote.Store
	switch cfg.RemoteBackend {
	case "sheets":
		sheets, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets store", "error", err)
			os.Exit(1)
		}
		remoteStore = sheets
		logger.Info("Google Sheets store initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		// Useful for local development only: mirrored data does not
		// outlive the worker process.
		remoteStore = memory.New()
		logger.Warn("Using in-memory remote store, mirrored data is not durable")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(store, remoteStore)

	// The worker mirrors on behalf of whichever user is signed in on
	// this device. Queue messages name the user explicitly; the timer
	// backstop falls back to the persisted session.
	userID := sessionUserID(ctx, store)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx, userID); err != nil {
		logger.Error("Failed startup sync check", "error", err)
		// Don't exit - continue with normal operation
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeStateSync(gctx, func(msg *amqp.StateSyncMessage) error {
			return syncWorker.HandleSyncMessage(gctx, msg)
		})
	})

	g.Go(func() error {
		return syncWorker.PeriodicSync(gctx, userID, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// sessionUserID reads the persisted session slot. An absent or unreadable
// slot means no user is signed in yet; the queue still names users.
func sessionUserID(ctx context.Context, store *storage.SQLiteStore) string {
	doc, err := store.LoadSession(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return ""
	}
	if err != nil {
		slog.WarnContext(ctx, "Failed to read session slot", "error", err)
		return ""
	}
	session, err := identity.DecodeSession(doc)
	if err != nil {
		slog.WarnContext(ctx, "Unreadable session slot", "error", err)
		return ""
	}
	return session.UserID
}

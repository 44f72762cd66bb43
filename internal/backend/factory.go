package backend

import (
	"context"
	"fmt"
	"log/slog"

	"haseela/internal/amqp"
	"haseela/internal/config"
	"haseela/internal/identity"
	"haseela/internal/remote"
	gsheet "haseela/internal/remote/google"
	"haseela/internal/remote/memory"
	"haseela/internal/services"
	"haseela/internal/storage"
)

// CleanupFunc releases resources a backend holds open.
type CleanupFunc func() error

// Result bundles everything the entrypoints assemble from configuration.
type Result struct {
	Local    *storage.SQLiteStore
	Remote   remote.Store
	Identity identity.Provider
	Pusher   services.Pusher
	AMQP     *amqp.Client
	Cleanup  CleanupFunc
}

// Factory builds the storage, remote, identity, and push components from
// application config.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create wires the full backend. The caller owns Cleanup and must invoke
// it on shutdown.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	local, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize local store: %w", err)
	}

	remoteStore, err := f.createRemote(ctx, cfg)
	if err != nil {
		local.Close()
		return nil, err
	}

	provider, err := f.createIdentity(cfg)
	if err != nil {
		local.Close()
		return nil, err
	}

	result := &Result{
		Local:    local,
		Remote:   remoteStore,
		Identity: provider,
	}

	switch cfg.PushTransport {
	case "amqp":
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The local-first write path works without a broker; the
			// periodic worker sync covers the gap.
			f.logger.Warn("Failed to initialize AMQP client, continuing without push transport", "error", err)
			break
		}
		f.logger.Info("Initialized AMQP push transport",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		result.AMQP = client
		result.Pusher = amqp.NewPusher(client)
	default:
		result.Pusher = services.NewDirectPusher(local, remoteStore)
		f.logger.Info("Initialized direct push transport")
	}

	result.Cleanup = func() error {
		if result.AMQP != nil {
			if err := result.AMQP.Close(); err != nil {
				f.logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		return local.Close()
	}

	f.logger.Info("Backend initialized",
		"db_path", cfg.SQLiteDBPath,
		"remote_backend", cfg.RemoteBackend,
		"identity_provider", cfg.IdentityProvider,
		"push_transport", cfg.PushTransport)

	return result, nil
}

func (f *Factory) createRemote(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.RemoteBackend {
	case "sheets":
		store, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets store: %w", err)
		}
		f.logger.Info("Initialized Google Sheets remote store")
		return store, nil
	case "memory":
		f.logger.Info("Initialized in-memory remote store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported remote backend: %s", cfg.RemoteBackend)
	}
}

func (f *Factory) createIdentity(cfg *config.Config) (identity.Provider, error) {
	switch cfg.IdentityProvider {
	case "http":
		f.logger.Info("Initialized HTTP identity provider", "url", cfg.IdentityURL)
		return identity.NewHTTPProvider(cfg.IdentityURL, cfg.IdentityAPIKey), nil
	case "memory":
		f.logger.Info("Initialized in-memory identity provider")
		return identity.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported identity provider: %s", cfg.IdentityProvider)
	}
}

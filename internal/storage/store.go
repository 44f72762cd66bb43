package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"haseela/internal/core"

	_ "modernc.org/sqlite"
)

// Slot keys. The state key carries the document schema version so a future
// format change can live alongside the old one during a migration.
const (
	StateKey   = "haseela/app_state_v3"
	SessionKey = "haseela/session"
)

// ErrNotFound is returned when a slot has never been written.
var ErrNotFound = errors.New("slot not found")

// Snapshot is the raw persisted form of a slot: the encoded document plus
// the instant it was last written. The sync worker pushes snapshots to the
// remote store without decoding them.
type Snapshot struct {
	Doc       []byte
	UpdatedAt time.Time
}

// SQLiteStore is the device-local cache. Every write lands here first;
// remote replication happens afterwards and may fail without losing data.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveState encodes and persists the application state under StateKey.
func (s *SQLiteStore) SaveState(ctx context.Context, state core.AppState, updatedAt time.Time) error {
	doc, err := core.EncodeState(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err := s.saveSlot(ctx, StateKey, doc, updatedAt); err != nil {
		return err
	}

	slog.DebugContext(ctx, "State saved to SQLite",
		"clients", len(state.Clients),
		"goals", len(state.Goals),
		"updated_at", updatedAt)
	return nil
}

// LoadState reads and decodes the state slot. A malformed document is an
// error; callers decide whether to fall back to an empty state.
func (s *SQLiteStore) LoadState(ctx context.Context) (core.AppState, time.Time, error) {
	snap, err := s.loadSlot(ctx, StateKey)
	if err != nil {
		return core.AppState{}, time.Time{}, err
	}

	state, err := core.DecodeState(snap.Doc)
	if err != nil {
		return core.AppState{}, time.Time{}, fmt.Errorf("decode state: %w", err)
	}

	return state, snap.UpdatedAt, nil
}

// StateSnapshot returns the state slot without decoding it.
func (s *SQLiteStore) StateSnapshot(ctx context.Context) (Snapshot, error) {
	return s.loadSlot(ctx, StateKey)
}

// ClearState removes the state slot.
func (s *SQLiteStore) ClearState(ctx context.Context) error {
	return s.deleteSlot(ctx, StateKey)
}

// SaveSession persists the encoded session under SessionKey so a restart
// does not require signing in again.
func (s *SQLiteStore) SaveSession(ctx context.Context, doc []byte) error {
	return s.saveSlot(ctx, SessionKey, doc, time.Now().UTC())
}

func (s *SQLiteStore) LoadSession(ctx context.Context) ([]byte, error) {
	snap, err := s.loadSlot(ctx, SessionKey)
	if err != nil {
		return nil, err
	}
	return snap.Doc, nil
}

func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	return s.deleteSlot(ctx, SessionKey)
}

func (s *SQLiteStore) saveSlot(ctx context.Context, key string, doc []byte, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (key, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		key, doc, updatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) loadSlot(ctx context.Context, key string) (Snapshot, error) {
	var doc []byte
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc, updated_at FROM slots WHERE key = ?`, key).Scan(&doc, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load slot %s: %w", key, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse slot %s timestamp: %w", key, err)
	}

	return Snapshot{Doc: doc, UpdatedAt: ts}, nil
}

func (s *SQLiteStore) deleteSlot(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete slot %s: %w", key, err)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"haseela/internal/core"
	"haseela/internal/identity"
	"haseela/internal/remote"
	"haseela/internal/storage"
)

// Phase is the coordinator's lifecycle state. Transitions only move
// forward within a session: Unauthenticated -> Authenticating -> Loading
// -> Ready, and back to Unauthenticated on sign-out.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseLoading         Phase = "loading"
	PhaseReady           Phase = "ready"
)

var (
	// ErrNotReady is returned when a data operation arrives before a
	// session is established and loaded.
	ErrNotReady = errors.New("no active session")
)

// LocalStore is the slice of the SQLite store the coordinator drives.
type LocalStore interface {
	SaveState(ctx context.Context, state core.AppState, updatedAt time.Time) error
	LoadState(ctx context.Context) (core.AppState, time.Time, error)
	ClearState(ctx context.Context) error
	SaveSession(ctx context.Context, doc []byte) error
	LoadSession(ctx context.Context) ([]byte, error)
	ClearSession(ctx context.Context) error
}

// Pusher replicates the freshest local snapshot to the remote store after
// a local write. Push failures never fail the write that triggered them;
// the data is already safe locally.
type Pusher interface {
	Push(ctx context.Context, userID string, updatedAt time.Time) error
}

// Coordinator owns the in-memory working state and orchestrates the
// local-first write path: every mutation lands in SQLite before any
// replication is attempted.
type Coordinator struct {
	local    LocalStore
	remote   remote.Store
	identity identity.Provider
	pusher   Pusher
	clock    func() time.Time

	mu      sync.Mutex
	phase   Phase
	session identity.Session
	state   core.AppState
}

func NewCoordinator(local LocalStore, remoteStore remote.Store, provider identity.Provider, pusher Pusher) *Coordinator {
	return &Coordinator{
		local:    local,
		remote:   remoteStore,
		identity: provider,
		pusher:   pusher,
		clock:    time.Now,
		phase:    PhaseUnauthenticated,
	}
}

// Start restores a persisted session, if any, and loads its data.
// Called once before the server starts accepting requests.
func (c *Coordinator) Start(ctx context.Context) error {
	doc, err := c.local.LoadSession(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "No persisted session, starting unauthenticated")
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	session, err := identity.DecodeSession(doc)
	if err != nil {
		// A corrupt session slot is not fatal; drop it and start clean.
		slog.WarnContext(ctx, "Discarding unreadable session slot", "error", err)
		if clearErr := c.local.ClearSession(ctx); clearErr != nil {
			slog.ErrorContext(ctx, "Failed to clear session slot", "error", clearErr)
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	if err := c.loadLocked(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Session restored", "user_id", session.UserID, "email", session.Email)
	return nil
}

func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Session returns the active session, if any.
func (c *Coordinator) Session() (identity.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.phase == PhaseReady
}

// State returns a copy of the working state.
func (c *Coordinator) State() (core.AppState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady {
		return core.AppState{}, ErrNotReady
	}
	return c.state.Clone(), nil
}

func (c *Coordinator) SignUp(ctx context.Context, email, password string) (identity.Session, error) {
	return c.authenticate(ctx, email, password, c.identity.SignUp)
}

func (c *Coordinator) SignIn(ctx context.Context, email, password string) (identity.Session, error) {
	return c.authenticate(ctx, email, password, c.identity.SignIn)
}

func (c *Coordinator) authenticate(ctx context.Context, email, password string, auth func(context.Context, string, string) (identity.Session, error)) (identity.Session, error) {
	c.mu.Lock()
	if c.phase == PhaseAuthenticating || c.phase == PhaseLoading {
		c.mu.Unlock()
		return identity.Session{}, errors.New("authentication already in progress")
	}
	// A failed attempt must not tear down a session that already works.
	prevPhase, prevSession := c.phase, c.session
	c.phase = PhaseAuthenticating
	c.mu.Unlock()

	session, err := auth(ctx, email, password)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.phase, c.session = prevPhase, prevSession
		return identity.Session{}, err
	}

	doc, err := identity.EncodeSession(session)
	if err != nil {
		c.phase, c.session = prevPhase, prevSession
		return identity.Session{}, err
	}
	if err := c.local.SaveSession(ctx, doc); err != nil {
		c.phase, c.session = prevPhase, prevSession
		return identity.Session{}, fmt.Errorf("persist session: %w", err)
	}

	c.session = session
	if err := c.loadLocked(ctx); err != nil {
		c.phase, c.session = PhaseUnauthenticated, identity.Session{}
		return identity.Session{}, err
	}
	return session, nil
}

// SignOut revokes the session and clears every local slot. The remote
// record is left untouched so the data is there on the next sign-in.
func (c *Coordinator) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	phase := c.phase
	c.mu.Unlock()

	if phase != PhaseReady {
		return ErrNotReady
	}

	// Best effort: a failed revocation should not strand the user.
	if err := c.identity.SignOut(ctx, session); err != nil {
		slog.WarnContext(ctx, "Session revocation failed", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.local.ClearSession(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := c.local.ClearState(ctx); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	c.session = identity.Session{}
	c.state = core.AppState{}
	c.phase = PhaseUnauthenticated
	slog.InfoContext(ctx, "Signed out")
	return nil
}

// Apply runs a mutation against the working state, persists the result
// locally, then nudges replication. The mutation either fully applies or
// leaves the state untouched.
func (c *Coordinator) Apply(ctx context.Context, m core.Mutation) (core.AppState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady {
		return core.AppState{}, ErrNotReady
	}

	next, err := m(c.state)
	if err != nil {
		return core.AppState{}, err
	}

	now := c.clock().UTC()
	if err := c.local.SaveState(ctx, next, now); err != nil {
		return core.AppState{}, fmt.Errorf("save state: %w", err)
	}
	c.state = next

	c.pushLocked(ctx, now)
	return next.Clone(), nil
}

// Export renders the current state as a backup document with the
// suggested download filename.
func (c *Coordinator) Export(ctx context.Context) ([]byte, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady {
		return nil, "", ErrNotReady
	}
	doc, err := core.EncodeState(c.state)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("haseela_backup_%s.json", c.clock().UTC().Format("2006-01-02"))
	return doc, name, nil
}

// Import replaces the working state with a backup document. The document
// must pass the same schema check loading applies.
func (c *Coordinator) Import(ctx context.Context, doc []byte) (core.AppState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady {
		return core.AppState{}, ErrNotReady
	}

	state, err := core.DecodeState(doc)
	if err != nil {
		return core.AppState{}, err
	}

	now := c.clock().UTC()
	if err := c.local.SaveState(ctx, state, now); err != nil {
		return core.AppState{}, fmt.Errorf("save state: %w", err)
	}
	c.state = state

	c.pushLocked(ctx, now)
	slog.InfoContext(ctx, "Backup imported", "clients", len(state.Clients), "goals", len(state.Goals))
	return state.Clone(), nil
}

// loadLocked establishes the working state for c.session. Remote data
// wins when it exists and holds anything; otherwise local data is adopted
// and migrated up. Remote being unreachable degrades to local-only.
func (c *Coordinator) loadLocked(ctx context.Context) error {
	c.phase = PhaseLoading
	userID := c.session.UserID

	rec, err := c.remote.Fetch(ctx, userID)
	switch {
	case err == nil:
		remoteState, decodeErr := core.DecodeState(rec.Doc)
		if decodeErr == nil && !remoteState.IsEmpty() {
			if saveErr := c.local.SaveState(ctx, remoteState, rec.UpdatedAt); saveErr != nil {
				return fmt.Errorf("cache remote state: %w", saveErr)
			}
			c.state = remoteState
			c.phase = PhaseReady
			slog.InfoContext(ctx, "Adopted remote state",
				"user_id", userID, "clients", len(remoteState.Clients))
			return nil
		}
		if decodeErr != nil {
			slog.WarnContext(ctx, "Remote record unreadable, falling back to local",
				"user_id", userID, "error", decodeErr)
		}
	case errors.Is(err, remote.ErrNotFound):
		// First sign-in on this account, or data only exists locally.
	default:
		slog.WarnContext(ctx, "Remote store unreachable, working from local cache",
			"user_id", userID, "error", err)
	}

	localState, updatedAt, err := c.local.LoadState(ctx)
	if err == nil {
		c.state = localState
		c.phase = PhaseReady
		// Pre-existing local data becomes the account's first remote record.
		c.pushLocked(ctx, updatedAt)
		slog.InfoContext(ctx, "Adopted local state", "user_id", userID, "clients", len(localState.Clients))
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load local state: %w", err)
	}

	fresh := core.NewState()
	now := c.clock().UTC()
	if err := c.local.SaveState(ctx, fresh, now); err != nil {
		return fmt.Errorf("save initial state: %w", err)
	}
	c.state = fresh
	c.phase = PhaseReady
	c.pushLocked(ctx, now)
	slog.InfoContext(ctx, "Starting with empty state", "user_id", userID)
	return nil
}

// pushLocked nudges replication. Errors are logged, never returned: the
// local write already succeeded and the worker or the next write will
// catch the remote up.
func (c *Coordinator) pushLocked(ctx context.Context, updatedAt time.Time) {
	if c.pusher == nil {
		slog.DebugContext(ctx, "No pusher configured, skipping replication")
		return
	}
	if err := c.pusher.Push(ctx, c.session.UserID, updatedAt); err != nil {
		slog.ErrorContext(ctx, "Replication push failed",
			"user_id", c.session.UserID, "error", err)
	}
}

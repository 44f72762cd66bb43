package remote

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Fetch when the user has no stored record yet.
var ErrNotFound = errors.New("record not found")

// Record is one user's persisted document together with its write instant.
// Conflict resolution is last writer wins: whichever Upsert lands last
// replaces the record wholesale, no merging.
type Record struct {
	Doc       []byte
	UpdatedAt time.Time
}

// Store is the port for the per-user remote document store.
type Store interface {
	// Fetch returns the record for the given user, or ErrNotFound.
	Fetch(ctx context.Context, userID string) (Record, error)

	// Upsert replaces the user's record with the given one.
	Upsert(ctx context.Context, userID string, rec Record) error
}

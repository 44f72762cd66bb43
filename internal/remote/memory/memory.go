package memory

import (
	"context"
	"sync"

	"haseela/internal/remote"
)

// Store keeps records in process memory. Used for local development and
// in tests as a stand-in for the spreadsheet backend.
type Store struct {
	mu      sync.Mutex
	records map[string]remote.Record
}

func New() *Store {
	return &Store{records: make(map[string]remote.Record)}
}

var _ remote.Store = (*Store)(nil)

func (s *Store) Fetch(_ context.Context, userID string) (remote.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return remote.Record{}, remote.ErrNotFound
	}
	// Copy the doc so callers cannot mutate the stored record.
	doc := append([]byte(nil), rec.Doc...)
	return remote.Record{Doc: doc, UpdatedAt: rec.UpdatedAt}, nil
}

func (s *Store) Upsert(_ context.Context, userID string, rec remote.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := append([]byte(nil), rec.Doc...)
	s.records[userID] = remote.Record{Doc: doc, UpdatedAt: rec.UpdatedAt}
	return nil
}

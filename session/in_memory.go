package session

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/hupe1980/agentchat/core"
)

// ErrNotFound is returned by Load for unknown chat ids.
var ErrNotFound = errors.New("history not found")

// InMemoryStore is a volatile HistoryStore keeping snapshots in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demos. Stored and returned snapshots are cloned to prevent
// external mutation.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]core.Message
}

// NewInMemoryStore constructs an empty in-memory history store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string][]core.Message)}
}

// Save replaces the snapshot stored under id.
func (s *InMemoryStore) Save(ctx context.Context, id string, msgs []core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[id] = core.CloneMessages(msgs)

	return nil
}

// Load returns a copy of the snapshot stored under id.
func (s *InMemoryStore) Load(ctx context.Context, id string) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.snapshots[id]
	if !ok {
		return nil, ErrNotFound
	}

	return core.CloneMessages(msgs), nil
}

// Delete removes the snapshot stored under id.
func (s *InMemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, id)
}

// IDs returns the stored chat ids sorted.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

package redelivery

import (
	"context"
	"sync"
)

// SeenStore records processed event ids for idempotent consumption.
type SeenStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}

// MemorySeenStore is a process-local SeenStore. Ids are kept for the life of the process.
type MemorySeenStore struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

var _ SeenStore = (*MemorySeenStore)(nil)

func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{ids: make(map[string]struct{})}
}

func (s *MemorySeenStore) Seen(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[eventID]

	return ok, nil
}

func (s *MemorySeenStore) MarkSeen(_ context.Context, eventID string) error {
	s.mu.Lock()
	s.ids[eventID] = struct{}{}
	s.mu.Unlock()

	return nil
}

// Len returns the number of recorded ids.
func (s *MemorySeenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ids)
}

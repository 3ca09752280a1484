package surveyor

import (
	"context"
	"sync"

	"enrolld/pkg/platform/sentinel"
)

// MemoryStore keeps surveyor accounts in memory for tests and single-node
// field relays provisioned from a seed file.
type MemoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]*Surveyor
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUsername: make(map[string]*Surveyor)}
}

func (s *MemoryStore) Save(_ context.Context, surveyor *Surveyor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *surveyor
	s.byUsername[surveyor.Username] = &copied
	return nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*Surveyor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	surveyor, ok := s.byUsername[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *surveyor
	return &copied, nil
}

package lookup

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	titles    Titles
	expiresAt time.Time
}

// InMemoryStore is a persistent-layer stand-in for tests and for running
// without Redis. Honors TTL expiry.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[ResourceType]memoryEntry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[ResourceType]memoryEntry), now: time.Now}
}

func (s *InMemoryStore) Get(_ context.Context, typ ResourceType) (Titles, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[typ]
	if !ok || s.now().After(entry.expiresAt) {
		return nil, nil
	}
	out := make(Titles, len(entry.titles))
	for k, v := range entry.titles {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) Set(_ context.Context, typ ResourceType, titles Titles, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(Titles, len(titles))
	for k, v := range titles {
		copied[k] = v
	}
	s.entries[typ] = memoryEntry{titles: copied, expiresAt: s.now().Add(ttl)}
	return nil
}

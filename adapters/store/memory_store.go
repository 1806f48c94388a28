package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/linker/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the Cache interface
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Cache {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Set stores value under key until ttl elapses
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}

	// Expired entries are dropped lazily on write
	for k, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, k)
		}
	}

	return nil
}

// Get returns the value stored under key if it has not expired
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[key]
	if !exists || !entry.expiresAt.After(s.now()) {
		return "", false, nil
	}

	return entry.value, true, nil
}

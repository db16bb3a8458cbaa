package auth

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	playerID  string
	expiresAt time.Time
}

// MemoryStore keeps session tokens in process memory. It backs
// development setups that run without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// now is replaceable for tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, token, playerID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{playerID: playerID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return "", ErrTokenNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, token)
		return "", ErrTokenNotFound
	}
	return entry.playerID, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/larder/backend/internal/domain/shared"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// InMemoryIdempotencyStore implements IdempotencyStore using an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store and starts a goroutine that
// evicts expired entries every cleanupInterval (5 minutes if <= 0).
func NewInMemoryIdempotencyStore(cleanupInterval time.Duration) *InMemoryIdempotencyStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	store.wg.Add(1)
	go store.cleanupLoop(cleanupInterval)
	return store
}

// Claim stores key -> value unless an unexpired claim exists
func (s *InMemoryIdempotencyStore) Claim(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, exists := s.entries[key]; exists && now.Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
	return true, nil
}

// Lookup returns the value of an unexpired claim
func (s *InMemoryIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || !s.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Forget drops a claim
func (s *InMemoryIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of entries, expired or not
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

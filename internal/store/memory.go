package store

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often Set scans for expired entries.
const sweepInterval = time.Minute

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a concurrency-safe in-memory key-value store with per-key expiration.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]memoryEntry

	// maxEntries bounds the map; expired entries are evicted first.
	maxEntries int
	nextSweep  time.Time
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore.
// If maxEntries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Get returns the value for key. Expired entries read as absent.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl. A non-positive ttl deletes the key.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		delete(s.data, key)
		return nil
	}

	now := s.now()
	s.data[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}

	// Enforce retention by age, then by count.
	overLimit := s.maxEntries > 0 && len(s.data) > s.maxEntries
	if overLimit || !now.Before(s.nextSweep) {
		s.evictExpired(now)
		s.nextSweep = now.Add(sweepInterval)
	}
	if s.maxEntries > 0 && len(s.data) > s.maxEntries {
		s.evictSoonest(len(s.data) - s.maxEntries)
	}
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, e := range s.data {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) evictExpired(now time.Time) {
	for k, e := range s.data {
		if !now.Before(e.expiresAt) {
			delete(s.data, k)
		}
	}
}

// evictSoonest removes the n entries closest to expiring.
func (s *MemoryStore) evictSoonest(n int) {
	for ; n > 0; n-- {
		var (
			victim string
			oldest time.Time
		)
		for k, e := range s.data {
			if victim == "" || e.expiresAt.Before(oldest) {
				victim, oldest = k, e.expiresAt
			}
		}
		delete(s.data, victim)
	}
}

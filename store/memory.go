// Package store provides storage backends for github.com/jassus213/go-bucket-limiter.
//
// Supported backends:
//   - MemoryStore: in-memory store for single-instance applications and tests
//   - RedisStore: Redis-based store for distributed applications
//
// Stores implement the ratelimiter.Store interface: an atomic
// increment-with-expiry and a plain read.
//
// Example usage:
//
//	ctx := context.Background()
//	store := store.NewMemory(ctx, time.Minute) // cleanup interval = 1 minute
//	limiter := ratelimiter.NewFixedWindow(store)
package store

import (
	"context"
	"sync"
	"time"
)

// counterEntry stores a window counter and when it expires.
type counterEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of ratelimiter.Store.
//
// Counters expire on their own TTL, and an optional background goroutine
// removes expired entries. State is local to the process, so MemoryStore
// cannot enforce a limit shared by several replicas.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]counterEntry
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock replaces time.Now for expiry decisions.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemory creates a new MemoryStore instance.
//
// ctx: a parent context used to manage the lifecycle of the background cleanup goroutine.
// cleanupInterval: interval at which expired entries are removed. Pass 0 to disable cleanup.
//
// Example:
//
//	ctx := context.Background()
//	store := store.NewMemory(ctx, time.Minute)
func NewMemory(ctx context.Context, cleanupInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		now:     time.Now,
		entries: make(map[string]counterEntry),
	}
	for _, opt := range opts {
		opt(store)
	}

	if cleanupInterval > 0 {
		go store.runCleanup(ctx, cleanupInterval)
	}

	return store
}

// Increment atomically adds amount to the counter at key, creating it with
// an expiry of ttl if it is absent or expired.
//
// Example:
//
//	count, err := store.Increment(ctx, "limiter:user:123:60000:29000000", 1, time.Minute)
func (s *MemoryStore) Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, found := s.entries[key]
	if !found || !now.Before(e.expiresAt) {
		e = counterEntry{expiresAt: now.Add(ttl)}
	}
	e.count += amount

	s.entries[key] = e
	return e.count, nil
}

// Get returns the counter at key, or 0 if it is absent or expired.
func (s *MemoryStore) Get(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	if !found || !s.now().Before(e.expiresAt) {
		return 0, nil
	}
	return e.count, nil
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// runCleanup periodically removes expired entries until ctx is done.
func (s *MemoryStore) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-ctx.Done():
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

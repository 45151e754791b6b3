package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStore_Increment(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Unix(1000, 0)}
	s := NewMemory(ctx, 0, WithMemoryClock(clock.Now))

	for i, want := range []int64{2, 4, 6} {
		got, err := s.Increment(ctx, "k", 2, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("increment %d: got %d, want %d", i, got, want)
		}
	}

	if got, _ := s.Get(ctx, "k"); got != 6 {
		t.Errorf("Get: got %d, want 6", got)
	}
	if got, _ := s.Get(ctx, "missing"); got != 0 {
		t.Errorf("Get on a missing key: got %d, want 0", got)
	}
}

func TestMemoryStore_ExpiryNotExtended(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Unix(1000, 0)}
	s := NewMemory(ctx, 0, WithMemoryClock(clock.Now))

	s.Increment(ctx, "k", 1, 10*time.Second)
	clock.Advance(9 * time.Second)
	s.Increment(ctx, "k", 1, 10*time.Second)
	clock.Advance(time.Second)

	if got, _ := s.Get(ctx, "k"); got != 0 {
		t.Errorf("expected the counter to expire 10s after creation, got %d", got)
	}
	if got, _ := s.Increment(ctx, "k", 1, 10*time.Second); got != 1 {
		t.Errorf("expected a new counter, got %d", got)
	}
}

func TestMemoryStore_Cleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &testClock{now: time.Unix(1000, 0)}
	s := NewMemory(ctx, 5*time.Millisecond, WithMemoryClock(clock.Now))

	s.Increment(ctx, "short", 1, time.Second)
	s.Increment(ctx, "long", 1, time.Hour)
	clock.Advance(time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Len() != 1 {
		t.Errorf("expected the expired entry to be removed, %d entries left", s.Len())
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemory(context.Background(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Increment(ctx, "k", 1, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryStore_ThreadSafety(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	var wg sync.WaitGroup
	wg.Add(100)
	for range 100 {
		go func() {
			defer wg.Done()
			s.Increment(ctx, "k", 1, time.Minute)
		}()
	}
	wg.Wait()

	if got, _ := s.Get(ctx, "k"); got != 100 {
		t.Errorf("expected 100 after concurrent increments, got %d", got)
	}
}

func BenchmarkMemoryStore_Increment(b *testing.B) {
	ctx := context.Background()
	s := NewMemory(ctx, 0)

	for b.Loop() {
		s.Increment(ctx, "k", 1, time.Minute)
	}
}

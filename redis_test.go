package ratelimiter_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	ratelimiter "github.com/jassus213/go-bucket-limiter"
	"github.com/jassus213/go-bucket-limiter/store"
)

func newRedisStore(t *testing.T, opts *redis.Options) *store.RedisStore {
	t.Helper()
	opts.MaxRetries = -1
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	s, err := store.NewRedis(client)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newRedisLimiter(t *testing.T, clock *fakeClock) (*ratelimiter.FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := newRedisStore(t, &redis.Options{Addr: mr.Addr()})
	return ratelimiter.NewFixedWindow(s, ratelimiter.WithClock(clock.Now)), mr
}

func TestRedisLimiter_JointRules(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(epoch)
	limiter, _ := newRedisLimiter(t, clock)
	rules, _ := ratelimiter.ParseRules("10/10s,600/1h,10000/1d")

	for i := 1; i <= 10; i++ {
		res, err := limiter.Consume(ctx, "orders:POST", rules...)
		if err != nil {
			t.Fatalf("Redis error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("call %d was unexpectedly denied", i)
		}
	}

	res, err := limiter.Consume(ctx, "orders:POST", rules...)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Rule != 0 {
		t.Fatalf("expected call 11 to be denied by rule 0, got %+v", res)
	}
	if res.ResetAfter != 10*time.Second {
		t.Errorf("expected a full 10s window, got %v", res.ResetAfter)
	}
}

func TestRedisLimiter_DistributedState(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(epoch)
	mr := miniredis.RunT(t)
	rule := ratelimiter.MustRule(time.Minute, 1, 1)

	newNode := func() *ratelimiter.FixedWindowLimiter {
		s := newRedisStore(t, &redis.Options{Addr: mr.Addr()})
		return ratelimiter.NewFixedWindow(s, ratelimiter.WithClock(clock.Now))
	}

	// Instance A consumes the budget
	if res, err := newNode().Consume(ctx, "user_1", rule); err != nil || !res.Allowed {
		t.Fatalf("node A: %+v, %v", res, err)
	}

	// Instance B must see it
	res, err := newNode().Consume(ctx, "user_1", rule)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Error("instance B should see the budget consumed by instance A")
	}
}

func TestRedisLimiter_WindowBoundary(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(epoch.Add(9 * time.Second))
	limiter, mr := newRedisLimiter(t, clock)
	rule := ratelimiter.MustRule(10*time.Second, 1, 1)

	limiter.Consume(ctx, "k", rule)
	if res, _ := limiter.Consume(ctx, "k", rule); res.Allowed {
		t.Fatal("expected the window to be exhausted")
	}

	oldKey := limiter.BucketKey("k", rule, clock.Now())
	clock.Advance(time.Second)
	mr.FastForward(10 * time.Second)

	if mr.Exists(oldKey) {
		t.Errorf("expected %s to expire with its window", oldKey)
	}

	res, err := limiter.Consume(ctx, "k", rule)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Count != 1 {
		t.Errorf("expected a fresh window, got %+v", res)
	}
}

func TestRedisLimiter_Concurrency(t *testing.T) {
	const n = 50
	clock := newFakeClock(epoch)
	limiter, _ := newRedisLimiter(t, clock)
	rule := ratelimiter.MustRule(time.Minute, n-1, 1)

	var rejects atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			res, err := limiter.Consume(context.Background(), "shared", rule)
			if err != nil {
				t.Error(err)
				return
			}
			if !res.Allowed {
				rejects.Add(1)
			}
		}()
	}
	wg.Wait()

	if rejects.Load() != 1 {
		t.Errorf("expected exactly one reject, got %d", rejects.Load())
	}
}

func TestRedisLimiter_StoreUnavailable(t *testing.T) {
	clock := newFakeClock(epoch)
	limiter, mr := newRedisLimiter(t, clock)
	rule := ratelimiter.MustRule(time.Minute, 10, 1)

	mr.SetError("ERR server unavailable")
	res, err := limiter.Consume(context.Background(), "k", rule)
	if !errors.Is(err, ratelimiter.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if res.Allowed {
		t.Error("a store failure must not be reported as an admit")
	}

	down := newRedisStore(t, &redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	limiter = ratelimiter.NewFixedWindow(down)
	if _, err := limiter.Consume(context.Background(), "k", rule); !errors.Is(err, ratelimiter.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable with Redis down, got %v", err)
	}
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementLua adds ARGV[1] to KEYS[1] and, when the key has no expiry yet
// (it was just created), sets it to ARGV[2] milliseconds. An existing expiry
// is never extended.
const incrementLua = `
	local current = redis.call("INCRBY", KEYS[1], ARGV[1])
	if redis.call("PTTL", KEYS[1]) == -1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return current
`

// RedisStore implements the ratelimiter.Store interface using Redis as the backend.
// It is suitable for distributed systems where multiple application instances need to share
// a common rate-limiting state. The increment runs as one Lua script, so it is atomic
// on the Redis server.
//
// Any go-redis client works: *redis.Client, *redis.ClusterClient or *redis.Ring.
type RedisStore struct {
	client          redis.UniversalClient
	incrementScript *redis.Script
}

// ErrClientRetries is returned by NewRedis for a client that retries failed
// commands. A retried increment whose first attempt already ran on the server
// is counted twice.
var ErrClientRetries = errors.New("store: redis client must not retry commands (set MaxRetries: -1)")

// NewRedis creates a new instance of RedisStore.
//
// client must not retry commands. go-redis retries by default, including after
// a connection drops while the reply is in flight, and a script that already
// ran would be charged again. Build *redis.Client and *redis.Ring with
// MaxRetries: -1, and *redis.ClusterClient with MaxRedirects: -1 as well,
// since the cluster client retries network errors through its redirect loop.
func NewRedis(client redis.UniversalClient) (*RedisStore, error) {
	if retries(client) {
		return nil, ErrClientRetries
	}
	return &RedisStore{
		client:          client,
		incrementScript: redis.NewScript(incrementLua),
	}, nil
}

// retries reports whether client re-sends failed commands. go-redis
// normalises -1 to 0 when the client is built.
func retries(client redis.UniversalClient) bool {
	switch c := client.(type) {
	case *redis.Client:
		return c.Options().MaxRetries > 0
	case *redis.Ring:
		return c.Options().MaxRetries > 0
	case *redis.ClusterClient:
		o := c.Options()
		return o.MaxRetries > 0 || o.MaxRedirects > 0
	}
	return false
}

// Load uploads the increment script so the first Increment does not pay for
// an EVALSHA miss. It is optional; Increment falls back to EVAL by itself.
func (s *RedisStore) Load(ctx context.Context) error {
	return s.incrementScript.Load(ctx, s.client).Err()
}

// Increment executes the Lua script for key in a single round trip.
func (s *RedisStore) Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	res, err := s.incrementScript.Run(ctx, s.client, []string{key}, amount, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	count, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("store: unexpected script reply %T", res)
	}
	return count, nil
}

// Get reads the counter at key; a missing key counts as 0.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Package ratelimiter enforces several fixed-window rate rules against one key,
// with the counters kept in a store shared by every process that calls it.
//
// The package defines these core abstractions:
//   - Rule: one "limit per window" constraint with a per-call cost
//   - Limiter: checks a key against a set of rules (FixedWindowLimiter)
//   - Store: backend holding the window counters (see the store package for
//     MemoryStore and RedisStore)
//   - Result: the outcome of a check, with enough detail for HTTP headers
//
// Example:
//
//	rules := []ratelimiter.Rule{
//	    ratelimiter.MustRule(10*time.Second, 10, 1),
//	    ratelimiter.MustRule(time.Hour, 600, 1),
//	    ratelimiter.MustRule(24*time.Hour, 10000, 1),
//	}
//	limiter := ratelimiter.NewFixedWindow(redisStore)
//	result, err := limiter.Consume(ctx, "orders:POST", rules...)
//	if err != nil {
//	    // ErrStoreUnavailable: decide fail-open or fail-closed
//	}
//	if !result.Allowed {
//	    // reject, retry after result.ResetAfter
//	}
package ratelimiter

import (
	"context"
	"time"
)

// Result contains the outcome of a Consume call.
//
// Limit, Count, Remaining and ResetAfter describe a single rule: the first
// violated rule when the call is rejected, otherwise the rule with the least
// remaining budget. They map directly onto `X-RateLimit-Limit`,
// `X-RateLimit-Remaining`, `X-RateLimit-Reset` and `Retry-After`.
type Result struct {
	// Allowed reports whether every rule was satisfied.
	Allowed bool
	// Rule is the index of the first violated rule, or -1 when allowed.
	Rule int
	// Limit is the reported rule's limit.
	Limit int64
	// Count is the reported rule's counter after this call.
	Count int64
	// Remaining is the cost still available in the reported rule's window.
	Remaining int64
	// ResetAfter is the time left in the reported rule's current window.
	ResetAfter time.Duration
	// Statuses holds one entry per evaluated rule, in rule order.
	Statuses []RuleStatus
}

// RuleStatus is the state of one rule's bucket as seen by a call.
type RuleStatus struct {
	Rule       Rule
	Count      int64
	Remaining  int64
	ResetAfter time.Duration
	// Applied reports whether this call's cost was added to the bucket.
	Applied bool
	// Exceeded reports whether Count is above the rule's limit.
	Exceeded bool
}

// Limiter is what middleware and users call to enforce rules on a key.
type Limiter interface {
	// Consume charges one call against every rule for key and reports whether
	// the call is admitted. A rejection is reported through Result.Allowed,
	// never as an error.
	Consume(ctx context.Context, key string, rules ...Rule) (Result, error)

	// Usage reports the current counters for key without charging anything.
	Usage(ctx context.Context, key string, rules ...Rule) ([]RuleStatus, error)
}

// Store holds window counters. Implementations must be safe for concurrent use.
type Store interface {
	// Increment atomically adds amount to the counter at key and returns the
	// new value. If the key does not exist it is created at zero with an
	// expiration of ttl first. The expiration is never extended afterwards.
	//
	// The create, add and read must be one indivisible operation; a
	// read-then-write from the client is not a valid implementation.
	Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error)

	// Get returns the counter at key, or 0 if the key does not exist.
	Get(ctx context.Context, key string) (int64, error)
}

package ratelimiter

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// FixedWindowLimiter checks a key against several fixed-window rules at once.
//
// Time is cut into consecutive slices of each rule's window; all calls in the
// same slice share one counter in the Store. The limiter keeps no bucket state
// of its own, so any number of processes can share a Store and enforce the
// same limits. It is safe for concurrent use.
//
// Example usage:
//
//	limiter := ratelimiter.NewFixedWindow(redisStore,
//	    ratelimiter.WithTimeout(100*time.Millisecond),
//	)
//	result, err := limiter.Consume(ctx, "user:123", perTenSeconds, perHour)
type FixedWindowLimiter struct {
	store    Store
	prefix   string
	now      func() time.Time
	policy   Policy
	timeout  time.Duration
	logger   Logger
	recorder Recorder
}

// NewFixedWindow creates a limiter over store.
func NewFixedWindow(store Store, opts ...LimiterOption) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		store:    store,
		prefix:   DefaultPrefix,
		now:      time.Now,
		policy:   AlwaysIncrement,
		logger:   &noopLogger{},
		recorder: NoOpRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Consume charges one call against rules for key.
//
// Rules are evaluated in order, each with its own atomic Store.Increment.
// Under AlwaysIncrement every rule is charged; under ShortCircuit evaluation
// stops at the first violated rule. The call is allowed only if no charged
// rule's counter exceeds its limit.
//
// A store failure returns a *StoreError (errors.Is ErrStoreUnavailable).
// Increments for the rules before the failing one remain applied.
func (l *FixedWindowLimiter) Consume(ctx context.Context, key string, rules ...Rule) (Result, error) {
	if err := validate(key, rules); err != nil {
		return Result{Rule: -1}, err
	}

	start := time.Now()
	defer func() {
		l.recorder.Observe(MetricLatency, time.Since(start).Seconds(), nil)
	}()
	l.recorder.Add(MetricCalls, 1, nil)

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	now := l.now()
	result := Result{Allowed: true, Rule: -1, Statuses: make([]RuleStatus, 0, len(rules))}

	for i, rule := range rules {
		count, err := l.store.Increment(ctx, l.bucketKey(key, rule, now), rule.cost, rule.window)
		if err != nil {
			return Result{Rule: -1, Statuses: result.Statuses}, l.storeFailure(key, i, err)
		}

		st := status(rule, count, now)
		st.Applied = true
		result.Statuses = append(result.Statuses, st)

		if st.Exceeded && result.Allowed {
			result.Allowed = false
			result.Rule = i
			l.recorder.Add(MetricRejected, 1, map[string]string{"rule": rule.String()})
			l.logger.Debugf("Request denied for key '%s' by rule %d (%s): count %d > limit %d",
				key, i, rule, count, rule.limit)
			if l.policy == ShortCircuit {
				break
			}
		}
	}

	result.fill()
	return result, nil
}

// Usage returns the current counters for key without charging anything.
func (l *FixedWindowLimiter) Usage(ctx context.Context, key string, rules ...Rule) ([]RuleStatus, error) {
	if err := validate(key, rules); err != nil {
		return nil, err
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	now := l.now()
	statuses := make([]RuleStatus, 0, len(rules))
	for i, rule := range rules {
		count, err := l.store.Get(ctx, l.bucketKey(key, rule, now))
		if err != nil {
			return nil, l.storeFailure(key, i, err)
		}
		statuses = append(statuses, status(rule, count, now))
	}
	return statuses, nil
}

// BucketKey returns the store key holding key's counter for rule at time now.
func (l *FixedWindowLimiter) BucketKey(key string, rule Rule, now time.Time) string {
	return l.bucketKey(key, rule, now)
}

func (l *FixedWindowLimiter) bucketKey(key string, rule Rule, now time.Time) string {
	ms := rule.window.Milliseconds()
	slice := now.UnixMilli() / ms
	return l.prefix + key + ":" + strconv.FormatInt(ms, 10) + ":" + strconv.FormatInt(slice, 10)
}

func (l *FixedWindowLimiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout > 0 {
		return context.WithTimeout(ctx, l.timeout)
	}
	return ctx, func() {}
}

func (l *FixedWindowLimiter) storeFailure(key string, rule int, err error) error {
	l.recorder.Add(MetricStoreError, 1, nil)
	l.logger.Errorf("Store failed for key '%s' at rule %d: %v", key, rule, err)
	return &StoreError{Rule: rule, Applied: rule, Err: err}
}

// fill copies the reported rule's numbers into the top-level fields: the
// violated rule when rejected, otherwise the one with the least remaining.
func (r *Result) fill() {
	if len(r.Statuses) == 0 {
		return
	}
	idx := r.Rule
	if idx < 0 {
		idx = 0
		for i, st := range r.Statuses {
			if st.Remaining < r.Statuses[idx].Remaining {
				idx = i
			}
		}
	}
	st := r.Statuses[idx]
	r.Limit = st.Rule.limit
	r.Count = st.Count
	r.Remaining = st.Remaining
	r.ResetAfter = st.ResetAfter
}

func status(rule Rule, count int64, now time.Time) RuleStatus {
	remaining := rule.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RuleStatus{
		Rule:       rule,
		Count:      count,
		Remaining:  remaining,
		ResetAfter: resetAfter(rule.window, now),
		Exceeded:   count > rule.limit,
	}
}

// resetAfter is the time left in the window slice containing now.
func resetAfter(window time.Duration, now time.Time) time.Duration {
	ms := window.Milliseconds()
	return time.Duration(ms-now.UnixMilli()%ms) * time.Millisecond
}

func validate(key string, rules []Rule) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(rules) == 0 {
		return fmt.Errorf("%w: empty rule set", ErrInvalidRule)
	}
	for i, r := range rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

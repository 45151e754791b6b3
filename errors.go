package ratelimiter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRule is returned for a malformed rule (zero window, zero limit,
	// cost below one) or an empty rule set. It is a configuration error and
	// must not be retried.
	ErrInvalidRule = errors.New("ratelimiter: invalid rule")

	// ErrInvalidKey is returned when Consume or Usage is called with an empty key.
	ErrInvalidKey = errors.New("ratelimiter: key must not be empty")

	// ErrStoreUnavailable is returned when the store could not complete an
	// operation (connection lost, timeout, cancelled context). It means the
	// decision could not be made, which is not the same as a rejection.
	ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")

	// ErrorExceeded is passed to middleware error handlers when a request is
	// rejected. Consume itself never returns it: a rejection is a Result.
	ErrorExceeded = errors.New("rate limit exceeded")
)

// StoreError reports a store failure during Consume or Usage.
//
// Rules are applied in order, so when Rule is i the increments for rules
// 0..i-1 have already been recorded in the store and are not rolled back.
type StoreError struct {
	// Rule is the index of the rule whose store call failed.
	Rule int
	// Applied is the number of rules whose increment completed before the failure.
	Applied int
	// Err is the error returned by the store.
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%v: rule %d (%d applied): %v", ErrStoreUnavailable, e.Rule, e.Applied, e.Err)
}

// Unwrap returns the underlying store error.
func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreUnavailable) report true.
func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

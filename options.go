package ratelimiter

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Logger is the interface used for logging inside the rate limiter.
//
// Implement this interface to provide your own logging backend, or use one of
// the adapters under adapters/ (std log, zap, zerolog, logrus).
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger is a default logger that does nothing.
// It is used when no logger is provided by the user to avoid nil panics.
type noopLogger struct{}

func (l *noopLogger) Debugf(format string, args ...interface{}) {}
func (l *noopLogger) Warnf(format string, args ...interface{})  {}
func (l *noopLogger) Errorf(format string, args ...interface{}) {}

// Recorder receives limiter metrics. See the metrics package for a
// Prometheus implementation.
type Recorder interface {
	// Add increments the counter name by value.
	Add(name string, value float64, tags map[string]string)
	// Observe records value in the distribution name.
	Observe(name string, value float64, tags map[string]string)
}

// NoOpRecorder discards every metric.
type NoOpRecorder struct{}

func (NoOpRecorder) Add(name string, value float64, tags map[string]string)     {}
func (NoOpRecorder) Observe(name string, value float64, tags map[string]string) {}

// Metric names emitted by FixedWindowLimiter.
const (
	MetricCalls      = "ratelimit.call"
	MetricRejected   = "ratelimit.rejected"
	MetricStoreError = "ratelimit.store_error"
	MetricLatency    = "ratelimit.latency"
)

// Policy decides what happens to the remaining rules once one is violated.
type Policy int

const (
	// AlwaysIncrement charges every rule on every call, even after an earlier
	// rule is violated, so attempted traffic is counted in every window.
	AlwaysIncrement Policy = iota
	// ShortCircuit stops at the first violated rule; later rules are not
	// charged and do not appear in Result.Statuses.
	ShortCircuit
)

func (p Policy) String() string {
	switch p {
	case AlwaysIncrement:
		return "always-increment"
	case ShortCircuit:
		return "short-circuit"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// DefaultPrefix is prepended to every bucket key.
const DefaultPrefix = "limiter:"

// LimiterOption configures a FixedWindowLimiter.
type LimiterOption func(*FixedWindowLimiter)

// WithPrefix sets the bucket key prefix (default "limiter:").
func WithPrefix(prefix string) LimiterOption {
	return func(l *FixedWindowLimiter) {
		l.prefix = prefix
	}
}

// WithClock replaces time.Now as the source for window slices.
// The clock must agree with the one the store uses for expiry.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *FixedWindowLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithPolicy sets the evaluation policy (default AlwaysIncrement).
func WithPolicy(p Policy) LimiterOption {
	return func(l *FixedWindowLimiter) {
		l.policy = p
	}
}

// WithTimeout bounds every Consume and Usage call. A call that runs out of
// time fails with ErrStoreUnavailable. Zero disables the limiter's own
// timeout and relies on the caller's context.
func WithTimeout(d time.Duration) LimiterOption {
	return func(l *FixedWindowLimiter) {
		l.timeout = d
	}
}

// WithLimiterLogger sets the limiter's logger.
func WithLimiterLogger(logger Logger) LimiterOption {
	return func(l *FixedWindowLimiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) LimiterOption {
	return func(l *FixedWindowLimiter) {
		if r != nil {
			l.recorder = r
		}
	}
}

// KeyFunc is a function type used to extract a unique client identifier from an
// incoming HTTP request. The returned string is used as the key for the rate limiter.
// Common implementations use the client's IP address, an API key, or the
// route ("endpoint:method").
type KeyFunc func(r *http.Request) (string, error)

// ErrorHandler is a function type that defines how to respond to a client when
// a rate limit is exceeded. This gives the user full control over the status code,
// headers, and body of the error response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, result Result)

// Config holds all configurable parameters for the middleware.
// Users interact with it via functional options.
type Config struct {
	KeyFunc      KeyFunc
	ErrorHandler ErrorHandler
	Logger       Logger
	// FailOpen admits requests when the limiter returns ErrStoreUnavailable.
	// By default such requests fail with 500.
	FailOpen bool
}

// Option is a function type that applies a configuration setting to a Config struct.
type Option func(*Config)

// NewConfig creates a Config instance with default settings and then applies
// any provided functional options.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		KeyFunc: func(r *http.Request) (string, error) {
			return r.RemoteAddr, nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error, result Result) {
			w.Header().Set("Retry-After", RetryAfterSeconds(result))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		},
		Logger: &noopLogger{},
	}

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// RetryAfterSeconds formats result.ResetAfter for a Retry-After header,
// rounded up and never below one second.
func RetryAfterSeconds(result Result) string {
	retryAfter := int(math.Ceil(result.ResetAfter.Seconds()))
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return strconv.Itoa(retryAfter)
}

// WithKeyFunc returns an Option that sets a custom function for client identification.
func WithKeyFunc(f KeyFunc) Option {
	return func(c *Config) {
		if f != nil {
			c.KeyFunc = f
		}
	}
}

// WithErrorHandler returns an Option that sets a custom handler for rate limit errors.
// This is useful for sending structured JSON error responses or logging detailed information.
func WithErrorHandler(f ErrorHandler) Option {
	return func(c *Config) {
		if f != nil {
			c.ErrorHandler = f
		}
	}
}

// WithLogger returns an Option that sets a custom logger.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithFailOpen returns an Option that admits requests when the store is
// unavailable instead of answering 500.
func WithFailOpen(open bool) Option {
	return func(c *Config) {
		c.FailOpen = open
	}
}

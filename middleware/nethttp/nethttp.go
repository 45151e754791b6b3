// Package nethttp adapts a ratelimiter.Limiter to net/http.
package nethttp

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	ratelimiter "github.com/jassus213/go-bucket-limiter"
)

// Middleware creates a new middleware handler for the standard `net/http` library.
//
// Every request is charged against all rules for the key returned by the
// configured KeyFunc. The `X-RateLimit-*` headers describe the rule that
// rejected the request, or the tightest rule when it was admitted.
//
// When the limiter cannot reach its store the request fails with 500, unless
// WithFailOpen(true) is set, in which case it is passed through.
//
// Example:
//
//	limiter := ratelimiter.NewFixedWindow(store)
//	rules, _ := ratelimiter.ParseRules("10/10s,600/1h,10000/1d")
//	mux := http.NewServeMux()
//	mux.HandleFunc("/", myHandler)
//
//	rateLimitMiddleware := nethttp.Middleware(limiter, rules)
//	http.ListenAndServe(":8080", rateLimitMiddleware(mux))
func Middleware(limiter ratelimiter.Limiter, rules []ratelimiter.Rule, options ...ratelimiter.Option) func(http.Handler) http.Handler {
	cfg := ratelimiter.NewConfig(options...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := cfg.KeyFunc(r)
			if err != nil {
				cfg.Logger.Errorf("Failed to extract key: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			result, err := limiter.Consume(r.Context(), key, rules...)
			if err != nil {
				if cfg.FailOpen && errors.Is(err, ratelimiter.ErrStoreUnavailable) {
					cfg.Logger.Warnf("Limiter unavailable for key '%s', failing open: %v", key, err)
					next.ServeHTTP(w, r)
					return
				}
				cfg.Logger.Errorf("Limiter failed for key '%s': %v", key, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			SetHeaders(w.Header(), result)

			if !result.Allowed {
				cfg.Logger.Debugf(
					"Request denied for key '%s' by rule %d. Count: %d, Limit: %d",
					key, result.Rule, result.Count, result.Limit,
				)
				cfg.ErrorHandler(w, r, ratelimiter.ErrorExceeded, result)
				return
			}

			cfg.Logger.Debugf(
				"Request allowed for key '%s'. Remaining: %d, Limit: %d",
				key, result.Remaining, result.Limit,
			)
			next.ServeHTTP(w, r)
		})
	}
}

// SetHeaders writes the X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset (Unix seconds) headers for result.
func SetHeaders(h http.Header, result ratelimiter.Result) {
	h.Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	resetTimestamp := time.Now().Add(result.ResetAfter).Unix()
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTimestamp, 10))
}

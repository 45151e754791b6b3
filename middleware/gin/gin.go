package gin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	ratelimiter "github.com/jassus213/go-bucket-limiter"
	"github.com/jassus213/go-bucket-limiter/middleware/nethttp"
)

// RateLimiter creates a new Gin middleware handler.
//
// It charges each request against rules using the provided Limiter. The
// behavior of the middleware can be customized by passing functional options,
// such as changing how a client is identified (WithKeyFunc), how rejections
// are answered (WithErrorHandler) or what happens when the store is down
// (WithFailOpen).
//
// Example:
//
//	limiter := ratelimiter.NewFixedWindow(store)
//	router := gin.Default()
//	router.Use(gin.RateLimiter(limiter, rules))
func RateLimiter(limiter ratelimiter.Limiter, rules []ratelimiter.Rule, options ...ratelimiter.Option) gin.HandlerFunc {
	cfg := ratelimiter.NewConfig(options...)

	return func(c *gin.Context) {
		key, err := cfg.KeyFunc(c.Request)
		if err != nil {
			cfg.Logger.Errorf("Failed to extract key: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		result, err := limiter.Consume(c.Request.Context(), key, rules...)
		if err != nil {
			if cfg.FailOpen && errors.Is(err, ratelimiter.ErrStoreUnavailable) {
				cfg.Logger.Warnf("Limiter unavailable for key '%s', failing open: %v", key, err)
				c.Next()
				return
			}
			cfg.Logger.Errorf("Limiter failed for key '%s': %v", key, err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		nethttp.SetHeaders(c.Writer.Header(), result)

		if !result.Allowed {
			cfg.Logger.Debugf(
				"Request denied for key '%s' by rule %d. Count: %d, Limit: %d",
				key, result.Rule, result.Count, result.Limit,
			)
			cfg.ErrorHandler(c.Writer, c.Request, ratelimiter.ErrorExceeded, result)
			c.Abort()
			return
		}

		cfg.Logger.Debugf(
			"Request allowed for key '%s'. Remaining: %d, Limit: %d",
			key, result.Remaining, result.Limit,
		)

		c.Next()
	}
}

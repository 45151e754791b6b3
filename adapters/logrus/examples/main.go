package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	ratelimiter "github.com/jassus213/go-bucket-limiter"
	logrusadapter "github.com/jassus213/go-bucket-limiter/adapters/logrus"
	ginMiddleware "github.com/jassus213/go-bucket-limiter/middleware/gin"
	"github.com/jassus213/go-bucket-limiter/store"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	logrusLogger := logrusadapter.New(logger)

	limiterStore := store.NewMemory(ctx, 10*time.Minute)
	limiter := ratelimiter.NewFixedWindow(limiterStore, ratelimiter.WithLimiterLogger(logrusLogger))
	rules := []ratelimiter.Rule{
		ratelimiter.MustRule(time.Second, 1, 1),
		ratelimiter.MustRule(time.Minute, 30, 1),
	}

	config := []ratelimiter.Option{
		ratelimiter.WithLogger(logrusLogger),
		ratelimiter.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error, result ratelimiter.Result) {
			logrusLogger.Errorf(
				"Rate limit exceeded for key: %s | Rule: %d | Count: %d | Limit: %d",
				r.RemoteAddr, result.Rule, result.Count, result.Limit,
			)
			w.Header().Set("Retry-After", ratelimiter.RetryAfterSeconds(result))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		}),
	}

	router := gin.Default()
	router.Use(ginMiddleware.RateLimiter(limiter, rules, config...))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	logger.Info("Starting server on http://localhost:8080")
	if err := router.Run(":8080"); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

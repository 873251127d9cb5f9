package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

// Counter increments a windowed counter and reports the time left in the window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// LimitRecorder is notified of every rejected request.
type LimitRecorder interface {
	RecordRateLimited(scope string)
}

// RateLimitConfig bounds one route group.
type RateLimitConfig struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RateLimit caps requests per client IP within a fixed window. Limiter
// failures let the request through.
func RateLimit(counter Counter, recorder LimitRecorder, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return func(c *gin.Context) {
		if counter == nil || cfg.Limit <= 0 {
			c.Next()
			return
		}

		key := "ratelimit:" + cfg.Scope + ":" + c.ClientIP()
		count, ttl, err := counter.Incr(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("scope", cfg.Scope), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Limit) {
			if recorder != nil {
				recorder.RecordRateLimited(cfg.Scope)
			}
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(ttl)))
			response.Abort(c, appErrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(ttl time.Duration) int {
	secs := int(math.Ceil(ttl.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitStore counts requests per key in fixed windows
type RateLimitStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// RateLimitConfig holds configuration for the rate limit middleware
type RateLimitConfig struct {
	// Limit is the number of requests allowed per window, zero disables
	Limit int
	// Window is the length of a counting window
	Window time.Duration
	// Scope prefixes the keys so that route groups keep separate budgets
	Scope string
	// KeyFunc extracts the client key, ClientIP by default
	KeyFunc func(*gin.Context) string
}

// RateLimit returns a middleware rejecting clients above their budget with
// 429. A failing store lets requests through.
func RateLimit(store RateLimitStore, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if store == nil || cfg.Limit <= 0 || cfg.Window <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		key := cfg.Scope + ":" + cfg.KeyFunc(c)

		count, resetIn, err := store.Hit(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.Warn("Rate limit store unavailable", zap.String("scope", cfg.Scope), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Limit) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(resetIn.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

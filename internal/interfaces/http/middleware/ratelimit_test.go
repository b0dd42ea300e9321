package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/cache"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func rateLimitedRouter(store RateLimitStore, cfg RateLimitConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RateLimit(store, cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func hitFrom(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	store := cache.NewInMemoryRateLimitStore()
	defer store.Close()
	router := rateLimitedRouter(store, RateLimitConfig{Limit: 2, Window: time.Minute, Scope: "sig"}, nil)

	w := hitFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = hitFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = hitFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeRateLimited)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// another client keeps its own budget
	w = hitFrom(router, "10.0.0.2")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_ScopesAreIndependent(t *testing.T) {
	store := cache.NewInMemoryRateLimitStore()
	defer store.Close()
	first := rateLimitedRouter(store, RateLimitConfig{Limit: 1, Window: time.Minute, Scope: "a"}, nil)
	second := rateLimitedRouter(store, RateLimitConfig{Limit: 1, Window: time.Minute, Scope: "b"}, nil)

	assert.Equal(t, http.StatusOK, hitFrom(first, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hitFrom(second, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hitFrom(first, "10.0.0.1").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	router := rateLimitedRouter(failingStore{}, RateLimitConfig{Limit: 0, Window: time.Minute}, nil)

	w := hitFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimit_StoreFailureLetsRequestsThrough(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	router := rateLimitedRouter(failingStore{}, RateLimitConfig{Limit: 1, Window: time.Minute, Scope: "sig"}, zap.New(core))

	assert.Equal(t, http.StatusOK, hitFrom(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hitFrom(router, "10.0.0.1").Code)
	assert.Equal(t, 2, logs.FilterMessage("Rate limit store unavailable").Len())
}

func TestRateLimit_CustomKey(t *testing.T) {
	store := cache.NewInMemoryRateLimitStore()
	defer store.Close()
	cfg := RateLimitConfig{
		Limit:   1,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.Query("token") },
	}
	router := gin.New()
	router.Use(RateLimit(store, cfg, nil))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tc := range []struct {
		token string
		code  int
	}{
		{"abc", http.StatusOK},
		{"abc", http.StatusTooManyRequests},
		{"def", http.StatusOK},
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test?token="+tc.token, nil))
		assert.Equal(t, tc.code, w.Code, tc.token)
	}
}

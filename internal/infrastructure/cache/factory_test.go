package cache

import (
	"testing"

	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCounterFactory_CreateCounter(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		counter, err := NewCounterFactory(config.RedisConfig{}).CreateCounter()
		require.NoError(t, err)
		assert.Nil(t, counter)
	})

	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("unreachable redis falls back", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		counter, err := NewCounterFactory(unreachable, WithLogger(zap.New(core))).CreateCounter()
		require.NoError(t, err)
		assert.Nil(t, counter)
		assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		_, err := NewCounterFactory(unreachable, WithInMemoryFallback(false)).CreateCounter()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unavailable")
	})
}

func TestCounterFactory_CreateRateLimitStore(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		store, err := NewCounterFactory(config.RedisConfig{}).CreateRateLimitStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryRateLimitStore{}, store)
	})

	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("unreachable redis falls back", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		store, err := NewCounterFactory(unreachable, WithLogger(zap.New(core))).CreateRateLimitStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryRateLimitStore{}, store)
		assert.Equal(t, 1, logs.FilterMessageSnippet("in-memory rate limiting").Len())
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		_, err := NewCounterFactory(unreachable, WithInMemoryFallback(false)).CreateRateLimitStore()
		assert.ErrorContains(t, err, "rate limiting")
	})
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/application/numbering"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CounterFactory creates the Redis backed components matching the
// configuration: the sequence counter and the rate limit store
type CounterFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CounterFactoryOption is a functional option for configuring the factory
type CounterFactoryOption func(*CounterFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CounterFactoryOption {
	return func(f *CounterFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-process rate limiting and counter-free numbering. Default is true.
func WithInMemoryFallback(allow bool) CounterFactoryOption {
	return func(f *CounterFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCounterFactory creates a new factory
func NewCounterFactory(cfg config.RedisConfig, opts ...CounterFactoryOption) *CounterFactory {
	f := &CounterFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCounter returns the Redis counter when Redis is enabled and
// reachable. Without Redis it returns a nil counter and the numbering
// authority proposes candidates from the ledger maximum.
func (f *CounterFactory) CreateCounter() (numbering.SequenceCounter, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, numbering from the ledger maximum")
		return nil, nil
	}

	counter, err := NewRedisSequenceCounter(RedisConfig{
		Addr:      f.redisConfig.Addr(),
		Password:  f.redisConfig.Password,
		DB:        f.redisConfig.DB,
		KeyPrefix: f.redisConfig.KeyPrefix,
	})
	if err == nil {
		f.logger.Info("Using Redis sequence counter", zap.String("addr", f.redisConfig.Addr()))
		return counter, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for the sequence counter but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to numbering from the ledger maximum", zap.Error(err))
	return nil, nil
}

// CreateRateLimitStore returns the Redis store when Redis is enabled and
// reachable, otherwise the in-memory one
func (f *CounterFactory) CreateRateLimitStore() (RateLimitStore, error) {
	if !f.redisConfig.Enabled {
		return NewInMemoryRateLimitStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err == nil {
		store := NewRedisRateLimitStore(client, f.redisConfig.KeyPrefix)
		store.owned = true
		return store, nil
	}
	_ = client.Close()

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for rate limiting but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory rate limiting", zap.Error(err))
	return NewInMemoryRateLimitStore(), nil
}

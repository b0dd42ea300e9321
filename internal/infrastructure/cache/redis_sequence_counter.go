package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/application/numbering"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "devis:"

// incrExisting increments the counter only when it is already initialised;
// -1 tells the caller to seed it first.
var incrExisting = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('INCR', KEYS[1])
end
return -1
`)

// raiseTo sets the counter to ARGV[1] unless it is already at or above it
var raiseTo = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local target = tonumber(ARGV[1])
if current < target then
	redis.call('SET', KEYS[1], target)
	return target
end
return current
`)

// RedisSequenceCounter implements numbering.SequenceCounter on Redis so that
// several server instances propose distinct candidates without contending on
// the database. The database ledger stays authoritative.
type RedisSequenceCounter struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisSequenceCounter connects to Redis and creates a counter
func NewRedisSequenceCounter(cfg RedisConfig) (*RedisSequenceCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSequenceCounterWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisSequenceCounterWithClient creates a counter with an existing client
func NewRedisSequenceCounterWithClient(client redis.UniversalClient, keyPrefix string) *RedisSequenceCounter {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisSequenceCounter{client: client, keyPrefix: keyPrefix}
}

func (c *RedisSequenceCounter) key(year int) string {
	return fmt.Sprintf("%squote:seq:%d", c.keyPrefix, year)
}

// Next increments the counter of the year, initialising it from seed when the
// key does not exist. Concurrent seeders race on SETNX; only one value sticks.
func (c *RedisSequenceCounter) Next(ctx context.Context, year int, seed func(ctx context.Context) (int, error)) (int, error) {
	key := c.key(year)

	n, err := incrExisting.Run(ctx, c.client, []string{key}).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence counter: %w", err)
	}
	if n >= 0 {
		return n, nil
	}

	start, err := seed(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to seed sequence counter: %w", err)
	}
	if err := c.client.SetNX(ctx, key, start, 0).Err(); err != nil {
		return 0, fmt.Errorf("failed to seed sequence counter: %w", err)
	}

	n64, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence counter: %w", err)
	}
	return int(n64), nil
}

// Observe raises the counter of the year to at least seq
func (c *RedisSequenceCounter) Observe(ctx context.Context, year int, seq int) error {
	err := raiseTo.Run(ctx, c.client, []string{c.key(year)}, seq).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to advance sequence counter: %w", err)
	}
	return nil
}

// Ping checks the connection
func (c *RedisSequenceCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisSequenceCounter) Close() error {
	return c.client.Close()
}

var _ numbering.SequenceCounter = (*RedisSequenceCounter)(nil)

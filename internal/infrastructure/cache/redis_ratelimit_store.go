package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitWindow increments the key and starts its expiry on the first hit.
// Returns {count, pttl}.
var hitWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// RedisRateLimitStore implements RateLimitStore on Redis so that every
// server instance shares the same budget per client.
type RedisRateLimitStore struct {
	client    redis.UniversalClient
	keyPrefix string
	owned     bool
}

// NewRedisRateLimitStore creates a store with an existing client. The client
// is not closed by Close.
func NewRedisRateLimitStore(client redis.UniversalClient, keyPrefix string) *RedisRateLimitStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisRateLimitStore{client: client, keyPrefix: keyPrefix}
}

// Hit records a request for key
func (s *RedisRateLimitStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := hitWindow.Run(ctx, s.client, []string{s.keyPrefix + "ratelimit:" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit reply of %d values", len(res))
	}
	resetIn := time.Duration(res[1]) * time.Millisecond
	if resetIn < 0 {
		resetIn = window
	}
	return res[0], resetIn, nil
}

// Close closes the client when the store created it
func (s *RedisRateLimitStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

var _ RateLimitStore = (*RedisRateLimitStore)(nil)

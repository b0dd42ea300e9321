package cache

import (
	"context"
	"time"
)

// RateLimitStore counts requests per key in fixed windows
type RateLimitStore interface {
	// Hit records one request for key and returns the number of requests in
	// the current window together with the time left before it resets.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
	Close() error
}

package repositories

import (
	"context"
	"time"
)

// CacheStore is an expiring key/value store. Get returns (nil, nil) on a miss.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CounterStore counts events per key. The first increment of a key starts its
// expiry.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

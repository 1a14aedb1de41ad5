package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/mufasadev/transfers/pkg/util/repeat"
	"github.com/redis/go-redis/v9"
)

const ClientTimeout = 2 * time.Second

// NewClient connects to redis and pings it, retrying up to maxConnAttempts times.
func NewClient(ctx context.Context, opts *redis.Options, maxConnAttempts int) (*redis.Client, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = ClientTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = ClientTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = ClientTimeout
	}

	client := redis.NewClient(opts)

	err := repeat.Repeat(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, ClientTimeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}, maxConnAttempts, ClientTimeout)

	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connect: %w", err)
	}

	return client, nil
}

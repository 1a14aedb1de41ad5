package interactor

import (
	"context"
	"fmt"
	"time"

	"github.com/mufasadev/transfers/internal/domain/repositories"
	"github.com/mufasadev/transfers/pkg/log"
	"github.com/rs/zerolog"
)

// Decision is the verdict of the rate limiter for one request.
type Decision int

const (
	Admitted Decision = iota
	Denied
	// Degraded means the counter store was unreachable and the request was
	// let through without being counted.
	Degraded
)

func (d Decision) Allowed() bool {
	return d != Denied
}

// RateLimitInteractor admits at most limit requests per client in each fixed
// window.
type RateLimitInteractor struct {
	counters repositories.CounterStore
	limit    int64
	window   time.Duration
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewRateLimitInteractor(counters repositories.CounterStore, limit int64, window time.Duration) *RateLimitInteractor {
	l := log.GetLogger()
	if window < time.Second {
		window = time.Second
	}
	return &RateLimitInteractor{
		counters: counters,
		limit:    limit,
		window:   window,
		now:      time.Now,
		logger:   &l,
	}
}

// Allow counts one request of identity in the current window.
func (r *RateLimitInteractor) Allow(ctx context.Context, identity string) Decision {
	windowSeconds := int64(r.window / time.Second)
	key := fmt.Sprintf("rate_limit:%s:%d", identity, r.now().Unix()/windowSeconds)

	count, err := r.counters.Incr(ctx, key, r.window)
	if err != nil {
		r.logger.Error().Err(err).Str("client", identity).Msg("rate limiter counter store unavailable, admitting request")
		return Degraded
	}

	if count > r.limit {
		r.logger.Warn().Str("client", identity).Int64("count", count).Msg("rate limit exceeded")
		return Denied
	}

	return Admitted
}

package interactor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimiter(counters *fakeCounters, limit int64, window time.Duration, now time.Time) *RateLimitInteractor {
	limiter := NewRateLimitInteractor(counters, limit, window)
	limiter.now = func() time.Time { return now }
	return limiter
}

func TestRateLimitAdmitsUpToLimit(t *testing.T) {
	counters := &fakeCounters{}
	limiter := newRateLimiter(counters, 3, time.Minute, time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Equal(t, Admitted, limiter.Allow(ctx, "10.0.0.1"))
	}
	decision := limiter.Allow(ctx, "10.0.0.1")
	assert.Equal(t, Denied, decision)
	assert.False(t, decision.Allowed())

	assert.Equal(t, Admitted, limiter.Allow(ctx, "10.0.0.2"), "clients are counted separately")
}

func TestRateLimitWindowKey(t *testing.T) {
	counters := &fakeCounters{}
	now := time.Unix(1_700_000_000, 0)
	limiter := newRateLimiter(counters, 1, time.Minute, now)
	ctx := context.Background()

	require.Equal(t, Admitted, limiter.Allow(ctx, "10.0.0.1"))
	require.Equal(t, Denied, limiter.Allow(ctx, "10.0.0.1"))

	limiter.now = func() time.Time { return now.Add(time.Minute) }
	assert.Equal(t, Admitted, limiter.Allow(ctx, "10.0.0.1"), "a new window starts a new count")

	assert.Equal(t, []string{
		"rate_limit:10.0.0.1:28333333",
		"rate_limit:10.0.0.1:28333333",
		"rate_limit:10.0.0.1:28333334",
	}, counters.keys)
}

func TestRateLimitFailsOpen(t *testing.T) {
	counters := &fakeCounters{err: errors.New("connection refused")}
	limiter := newRateLimiter(counters, 1, time.Minute, time.Now())

	for i := 0; i < 5; i++ {
		decision := limiter.Allow(context.Background(), "10.0.0.1")
		assert.Equal(t, Degraded, decision)
		assert.True(t, decision.Allowed())
	}
}

func TestRateLimitMinimumWindow(t *testing.T) {
	counters := &fakeCounters{}
	limiter := newRateLimiter(counters, 1, 0, time.Unix(42, 0))

	limiter.Allow(context.Background(), "c")
	assert.Equal(t, []string{"rate_limit:c:42"}, counters.keys)
}

// Package breaker builds circuit breakers for outbound dependencies. Create one
// breaker per downstream target and share it between every client of that
// target.
package breaker

import (
	"errors"
	"time"

	"github.com/mufasadev/transfers/pkg/log"
	"github.com/sony/gobreaker"
)

// ErrFailure marks a call result that must count against the breaker.
var ErrFailure = errors.New("downstream failure")

// Settings configures a breaker.
type Settings struct {
	Name string
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold uint32
	// Cooldown is how long the breaker stays open before one trial call.
	Cooldown time.Duration
}

// New returns a breaker that opens after Threshold consecutive failures,
// rejects calls for Cooldown, then lets a single trial call decide whether to
// close or open again. Only errors wrapping ErrFailure count as failures.
func New(s Settings) *gobreaker.CircuitBreaker {
	logger := log.GetLogger()
	threshold := s.Threshold
	if threshold == 0 {
		threshold = 1
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrFailure)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// IsOpen reports whether err was produced by a breaker rejecting the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

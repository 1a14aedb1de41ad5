package repeat

import (
	"context"
	"time"
)

// Repeat calls f until it succeeds, attempts run out or ctx is done, sleeping
// delay between calls. The last error from f is returned.
func Repeat(ctx context.Context, f func() error, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return err
}

package misc

import (
	"context"
	"time"
)

// DefaultBackoff is the start-up retry schedule for reaching a backend.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// RetryNotify is called before each wait with the failed attempt number (from 1).
type RetryNotify func(attempt int, err error, wait time.Duration)

// Retry runs op until it succeeds, returns a non-retryable error, or the
// delays run out. notify may be nil.
func Retry(ctx context.Context, delays []time.Duration, isRetryable func(error) bool, notify RetryNotify, op func(context.Context) error) error {
	var err error
	for i := 0; ; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i >= len(delays) || !isRetryable(err) {
			return err
		}
		if notify != nil {
			notify(i+1, err, delays[i])
		}
		t := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

package binance

import (
	"context"
	"math/rand/v2"
	"time"
)

// backoff returns the delay before retry number attempt (starting at 1):
// exponential growth from base capped at maxDelay, with full jitter. A server
// supplied Retry-After takes precedence.
func backoff(attempt int, base, maxDelay, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	if base <= 0 {
		base = time.Millisecond
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			d = maxDelay
			break
		}
	}
	// #nosec G404 -- jitter does not need a cryptographic source
	return time.Duration(rand.Int64N(int64(d) + 1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

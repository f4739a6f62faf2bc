package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// newPacer returns a limiter that admits one item per interval. A
// non-positive interval admits everything immediately.
func newPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// pace blocks until the limiter admits the next item.
func pace(ctx context.Context, l *rate.Limiter) error {
	return l.Wait(ctx)
}

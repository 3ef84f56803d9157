package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

type throttledLimiter struct {
	global *rate.Limiter
	next   Limiter
}

// NewThrottled puts a process-wide token bucket in front of next. Requests
// rejected by the bucket never reach the per-key window.
func NewThrottled(next Limiter, rps float64, burst int) *throttledLimiter {
	if burst < 1 {
		burst = 1
	}

	return &throttledLimiter{
		global: rate.NewLimiter(rate.Limit(rps), burst),
		next:   next,
	}
}

func (l *throttledLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res := l.global.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()

		return Decision{RetryAfter: delay}, nil
	}

	return l.next.Allow(ctx, key)
}

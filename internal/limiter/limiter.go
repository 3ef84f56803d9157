package limiter

import (
	"context"
	"time"
)

// Decision is the outcome of a single rate-limit check. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

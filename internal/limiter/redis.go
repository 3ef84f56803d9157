package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "rl"
	keySeparator = ":"
)

// redisLimiter keeps the fixed window in redis so the count survives
// restarts and is shared between instances. The counter key expires with
// the window, which gives the same lazy reset as the in-memory backend.
type redisLimiter struct {
	cl     *redis.Client
	limit  int
	period time.Duration
	log    *slog.Logger
}

func NewRedisLimiter(cl *redis.Client, limit int, period time.Duration, log *slog.Logger) *redisLimiter {
	return &redisLimiter{
		cl:     cl,
		limit:  limit,
		period: period,
		log:    log.With(slog.String("item", "RedisLimiter")),
	}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	rkey := getKey(keyPrefix, key)

	// The counter and its expiry travel in one transaction. ExpireNX arms
	// the window on the first request and re-arms any key that has lost
	// its expiry.
	pipe := l.cl.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	pipe.ExpireNX(ctx, rkey, l.period)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("cannot update window counter: %w", err)
	}

	count := incr.Val()
	if count > int64(l.limit) {
		ttl, err := l.cl.TTL(ctx, rkey).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("cannot get window ttl: %w", err)
		}
		if ttl < 0 {
			ttl = l.period
		}

		return Decision{RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true, Remaining: l.limit - int(count)}, nil
}

func getKey(keys ...string) string {
	return strings.Join(keys, keySeparator)
}

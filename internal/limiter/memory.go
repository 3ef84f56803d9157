package limiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter counts requests per key over a fixed window. Windows reset
// lazily on the next check after expiry, so an idle key costs nothing until
// the sweeper drops it.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
	log     *slog.Logger
}

func NewMemoryLimiter(limit int, period time.Duration, log *slog.Logger) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		done:    make(chan struct{}),
		log:     log.With(slog.String("item", "MemoryLimiter")),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[key] = w
	}

	if w.count >= l.limit {
		return Decision{RetryAfter: w.resetAt.Sub(now)}, nil
	}

	w.count++

	return Decision{Allowed: true, Remaining: l.limit - w.count}, nil
}

// Sweep drops expired windows and reports how many were removed.
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	var removed int
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}

	return removed
}

func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.windows)
}

func (l *MemoryLimiter) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.done:
				return
			case <-ticker.C:
				if removed := l.Sweep(); removed > 0 {
					l.log.Debug("Swept expired windows", slog.Int("removed", removed))
				}
			}
		}
	}()
}

func (l *MemoryLimiter) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

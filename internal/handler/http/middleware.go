package httphandler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/jgivc/vidrelay/internal/limiter"
	"github.com/jgivc/vidrelay/internal/util"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (limiter.Decision, error)
}

// RateLimit rejects requests from addresses that spent their window budget.
// A limiter backend failure fails closed.
func RateLimit(lim RateLimiter, log *slog.Logger) func(http.Handler) http.Handler {
	log = log.With(slog.String("handler", "RateLimit"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := util.ClientAddr(r.RemoteAddr)

			d, err := lim.Allow(r.Context(), addr)
			if err != nil {
				log.Error("Cannot check rate limit", slog.String("addr", addr), slog.Any("error", err))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})

				return
			}

			if !d.Allowed {
				retry := int(math.Ceil(d.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}

				log.Info("Rate limit exceeded", slog.String("addr", addr), slog.Int("retry_after", retry))

				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{
					Error:      "Too many requests, try again later",
					RetryAfter: retry,
				})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	log = log.With(slog.String("handler", "Recover"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic in handler", slog.String("path", r.URL.Path), slog.Any("panic", rec))
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

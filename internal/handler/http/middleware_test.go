package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jgivc/vidrelay/internal/limiter"
)

type fakeLimiter struct {
	d   limiter.Decision
	err error

	gotKey string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (limiter.Decision, error) {
	f.gotKey = key

	return f.d, f.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAllows(t *testing.T) {
	lim := &fakeLimiter{d: limiter.Decision{Allowed: true, Remaining: 5}}
	h := RateLimit(lim, testLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// The key is the source address without the port.
	require.Equal(t, "10.0.0.1", lim.gotKey)
}

func TestRateLimitRejects(t *testing.T) {
	lim := &fakeLimiter{d: limiter.Decision{RetryAfter: 90 * time.Second}}
	h := RateLimit(lim, testLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "90", rec.Header().Get("Retry-After"))

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Too many requests, try again later", body.Error)
	require.Equal(t, 90, body.RetryAfter)
}

func TestRateLimitBackendError(t *testing.T) {
	lim := &fakeLimiter{err: errors.New("backend gone")}
	h := RateLimit(lim, testLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimitWindow(t *testing.T) {
	mem := limiter.NewMemoryLimiter(10, 15*time.Minute, testLogger())
	h := RateLimit(mem, testLogger())(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/info", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Same address on another source port shares the budget.
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	req.RemoteAddr = "10.0.0.1:40000"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/info", nil)
	req.RemoteAddr = "10.0.0.2:54321"
	rec = httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthSkipsRateLimit(t *testing.T) {
	log := testLogger()

	mem := limiter.NewMemoryLimiter(0, time.Minute, log)
	defer mem.Stop()

	limitMw := RateLimit(mem, log)
	recoverMw := Recover(log)

	// The three routes as the app wires them: health carries no limiter.
	mux := http.NewServeMux()
	mux.Handle("GET /info", recoverMw(limitMw(NewInfoHandler(
		&fakeInfoService{err: errors.New("never reached")}, log))))
	mux.Handle("GET /download", recoverMw(limitMw(NewDownloadHandler(
		&fakeDownloadService{err: errors.New("never reached")}, &fakeFileStore{}, log))))
	mux.Handle("GET /health", recoverMw(NewHealthHandler()))

	// A zero quota rejects every counted request outright.
	for _, path := range []string{"/info?url=https://youtu.be/abc", "/download?url=https://youtu.be/abc"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:54321"
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Internal server error", body.Error)
}

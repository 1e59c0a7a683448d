package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hamropasal/backend-storefront/internal/common"
)

func TestMiddlewareLimitsPerUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lim, err := NewRedisLimiter(client, 2, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLimiter: %v", err)
	}
	handler := Handler{Limiter: lim, Log: zerolog.Nop()}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req = req.WithContext(common.WithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("first request status %d", code)
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("second request status %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("third request status %d, want 429", code)
	}
}

func TestMiddlewareKeysDistinctUsersSeparately(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lim, err := NewRedisLimiter(client, 1, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLimiter: %v", err)
	}
	handler := Handler{Limiter: lim, Log: zerolog.Nop()}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, user := range []string{"user-a", "user-b"} {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req = req.WithContext(common.WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("user %s status %d", user, rec.Code)
		}
	}
}

func TestMiddlewareNoLimiterPassesThrough(t *testing.T) {
	handler := Handler{Log: zerolog.Nop()}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

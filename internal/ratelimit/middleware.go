package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	redis "github.com/redis/go-redis/v9"

	"github.com/hamropasal/backend-storefront/internal/common"
)

// NewRedisLimiter builds a limiter backed by the shared Redis client.
func NewRedisLimiter(rdb *redis.Client, max int64, window time.Duration) (*limiter.Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "ratelimit",
	})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, limiter.Rate{Period: window, Limit: max}), nil
}

// Handler enforces a per-caller rate limit before delegating to the next
// handler. The key is the authenticated user when present, else the client IP.
type Handler struct {
	Limiter *limiter.Limiter
	Log     zerolog.Logger
}

// Middleware implements the chi middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := h.Limiter.Get(r.Context(), keyFor(r))
		if err != nil {
			// fail open: a limiter outage must not take the API down
			h.Log.Error().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		if lctx.Reached {
			retryAfter := lctx.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func keyFor(r *http.Request) string {
	if userID, ok := common.UserID(r.Context()); ok {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// Package ratelimit throttles request rates per local using a Redis-backed
// sliding window. Several POS terminals share one local, so limits are
// generous and exist to contain runaway clients, not to meter usage.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/foodflow/pos-api/internal/local"
)

// Limiter counts events per key inside a sliding window backed by a Redis
// sorted set of event timestamps.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records one event for key and reports whether it stays within max
// events per window, along with the remaining budget and window reset time.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}

	now := time.Now()
	reset := now.Add(window)
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	redisKey := l.Prefix + key

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, reset, err
	}

	current := int(count.Val())
	remaining := max - current
	if remaining < 0 {
		remaining = 0
	}
	return current <= max, remaining, reset, nil
}

// Middleware limits requests per local. Requests without a resolvable local
// fall back to the remote address, and Redis failures let requests through
// so an unavailable limiter never takes the API down with it.
type Middleware struct {
	Limiter Limiter
	Window  time.Duration
	Max     int
	Logger  zerolog.Logger
}

// Handler wraps next with rate limiting.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, reset, err := m.Limiter.Allow(r.Context(), m.key(r), m.Window, m.Max)
		if err != nil {
			m.Logger.Warn().Err(err).Msg("rate limiter unavailable, letting request through")
			next.ServeHTTP(w, r)
			return
		}

		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(m.Max))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			retry := int(time.Until(reset).Seconds())
			if retry < 0 {
				retry = 0
			}
			hdr.Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) key(r *http.Request) string {
	if id, ok := local.From(r.Context()); ok {
		return "local:" + id.String()
	}
	return "addr:" + r.RemoteAddr
}

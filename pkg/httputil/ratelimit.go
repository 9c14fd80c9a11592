package httputil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tair/plantops/pkg/logger"
)

// RateLimiter limits requests per client with a sliding window kept in
// Redis, so the limit holds across instances
type RateLimiter struct {
	redis       redis.Cmdable
	maxRequests int
	window      time.Duration
	identify    func(r *http.Request) string
}

// NewRateLimiter creates a new rate limiter. identify names the client of a
// request; an empty result falls back to the remote IP.
func NewRateLimiter(client redis.Cmdable, maxRequests int, window time.Duration, identify func(r *http.Request) string) *RateLimiter {
	return &RateLimiter{
		redis:       client,
		maxRequests: maxRequests,
		window:      window,
		identify:    identify,
	}
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := ""
		if rl.identify != nil {
			identifier = rl.identify(r)
		}
		if identifier == "" {
			identifier = "ip:" + remoteIP(r)
		}

		allowed, remaining, resetTime, err := rl.checkLimit(r.Context(), identifier)
		if err != nil {
			// Fail open on Redis errors.
			logger.Error(r.Context()).Err(err).Str("identifier", identifier).Msg("Rate limiter error")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			logger.Warn(r.Context()).
				Str("identifier", identifier).
				Int("limit", rl.maxRequests).
				Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetTime).Seconds())+1))
			RespondMessage(w, http.StatusTooManyRequests,
				fmt.Sprintf("Too many requests. Try again in %v", time.Until(resetTime).Round(time.Second)))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) checkLimit(ctx context.Context, identifier string) (bool, int, time.Time, error) {
	key := "plantops:ratelimit:" + identifier
	now := time.Now()
	windowStart := now.Add(-rl.window)

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, rl.window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := countCmd.Val()
	remaining := rl.maxRequests - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return count < int64(rl.maxRequests), remaining, now.Add(rl.window), nil
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

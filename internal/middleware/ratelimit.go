package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/serenify-journal/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed per IP in the window
	RateLimitMaxRequests = 60
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = 15 * time.Minute
)

// RedisRateLimiter is a fixed-window per-IP limiter shared by all instances
// through Redis. IPs that exceed the window are blocked for BlockedIPDuration.
type RedisRateLimiter struct {
	client *redis.Client
	log    *zap.SugaredLogger
	max    int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, log *zap.SugaredLogger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		log:    log,
		max:    RateLimitMaxRequests,
		window: RateLimitWindow,
	}
}

// Middleware fails open: if Redis is unreachable the request is served.
func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ipAddress := clientip.RealClientIP(r)
		ctx := r.Context()

		blocked, err := l.IsIPBlocked(ctx, ipAddress)
		if err == nil && blocked {
			writeTooManyRequests(w, `{"success":false,"message":"Your IP has been temporarily blocked due to excessive requests. Please try again later."}`)
			return
		}

		count, err := l.hit(ctx, ipAddress)
		if err != nil {
			l.log.Warnw("rate limiter unavailable, allowing request", "err", err)
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(l.max) {
			if err := l.client.Set(ctx, BlockedIPKeyPrefix+ipAddress, "1", BlockedIPDuration).Err(); err != nil {
				l.log.Warnw("failed to block ip", "ip", ipAddress, "err", err)
			}
			l.log.Infow("ip blocked after exceeding rate limit", "ip", ipAddress, "count", count)
			writeTooManyRequests(w, fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.","retry_after":%d}`, int(BlockedIPDuration.Seconds())))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(l.max)-count, 10))
		next.ServeHTTP(w, r)
	})
}

// hit increments the window counter, starting the window on the first request.
func (l *RedisRateLimiter) hit(ctx context.Context, ipAddress string) (int64, error) {
	key := RateLimitKeyPrefix + ipAddress
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// IsIPBlocked checks if an IP is currently blocked
func (l *RedisRateLimiter) IsIPBlocked(ctx context.Context, ipAddress string) (bool, error) {
	count, err := l.client.Exists(ctx, BlockedIPKeyPrefix+ipAddress).Result()
	return count > 0, err
}

func writeTooManyRequests(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(body))
}

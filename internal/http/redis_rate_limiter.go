package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisRateLimitPrefix = "neo:ratelimit:"

// fixedWindowScript increments the counter, starts the window on the first
// hit and returns the count with the remaining window in milliseconds.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

type redisRateLimiter struct {
	client  redis.Cmdable
	closer  func() error
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRedisRateLimiter shares request budgets across API replicas. It pings
// the server once so a bad address is reported at startup.
func NewRedisRateLimiter(addr, password string, db int, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &redisRateLimiter{
		client:  client,
		closer:  client.Close,
		logger:  logger,
		timeout: 250 * time.Millisecond,
		now:     time.Now,
	}, nil
}

// Allow fails open when Redis is unreachable: inspections keep working and
// the error is logged.
func (rl *redisRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	vals, err := fixedWindowScript.Run(ctx, rl.client, []string{redisRateLimitPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(vals) != 2 {
		if rl.logger != nil {
			rl.logger.Error("redis rate limiter unavailable; allowing request", "key", key, "error", err)
		}
		return rateDecision{allowed: true}
	}
	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	if ttl <= 0 {
		ttl = window
	}
	now := time.Now
	if rl.now != nil {
		now = rl.now
	}
	return rateDecision{
		allowed:   count <= limit,
		count:     count,
		windowEnd: now().Add(ttl),
	}
}

func (rl *redisRateLimiter) Close() {
	if rl.closer != nil {
		_ = rl.closer()
	}
}

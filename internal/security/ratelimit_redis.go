package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisRateLimiter is a fixed-window limiter shared across instances
type RedisRateLimiter struct {
	client redis.UniversalClient
	rate   int
	window time.Duration
	prefix string
	now    func() time.Time
	log    logrus.FieldLogger
}

// NewRedisClient builds a client from a redis:// URL
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return redis.NewClient(opts), nil
}

// NewRedisRateLimiter creates a limiter backed by client
func NewRedisRateLimiter(client redis.UniversalClient, rate int, window time.Duration, log logrus.FieldLogger) *RedisRateLimiter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisRateLimiter{
		client: client,
		rate:   rate,
		window: window,
		prefix: "copyforge:ratelimit:",
		now:    time.Now,
		log:    log,
	}
}

// Allow counts the request in the current window. Redis failures let the
// request through and are logged.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	bucket := rl.now().UnixNano() / int64(rl.window)
	redisKey := fmt.Sprintf("%s%s:%d", rl.prefix, key, bucket)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.log.WithError(err).Warn("rate limiter unavailable, allowing request")
		return true
	}

	return incr.Val() <= int64(rl.rate)
}

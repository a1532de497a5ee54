package ratelimit

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares the windows between replicas through Redis
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	size  time.Duration
	now   func() time.Time
}

// NewRedisLimiter connects to redisURL (redis:// or rediss://)
func NewRedisLimiter(ctx context.Context, redisURL string, limit int, size time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 1 * time.Second

	if opts.TLSConfig == nil && strings.HasPrefix(redisURL, "rediss://") {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisLimiter{rdb: rdb, limit: limit, size: size, now: time.Now}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := windowKey(key, l.now(), l.size)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, l.size)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// Close releases the Redis connection pool
func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}

func windowKey(key string, now time.Time, size time.Duration) string {
	return fmt.Sprintf("leadrelay:ratelimit:%s:%d", key, now.Truncate(size).Unix())
}

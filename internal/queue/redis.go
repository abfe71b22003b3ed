package queue

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// ConnectRedis parses a redis:// or rediss:// URL, applies client timeouts
// and verifies connectivity before returning.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = time.Second

	if opts.TLSConfig == nil && strings.HasPrefix(redisURL, "rediss://") {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisTransport keeps each queue in a Redis list: LPUSH on produce,
// BRPOP on consume, so the oldest job is served first.
type RedisTransport struct {
	rdb redis.Cmdable
}

func NewRedisTransport(rdb redis.Cmdable) *RedisTransport {
	return &RedisTransport{rdb: rdb}
}

func (t *RedisTransport) Push(ctx context.Context, queue string, job Job) error {
	payload, err := Encode(job)
	if err != nil {
		return fmt.Errorf("%w: encode job: %v", domain.ErrTransport, err)
	}
	if err := t.rdb.LPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("%w: lpush %s: %v", domain.ErrTransport, queue, err)
	}
	return nil
}

func (t *RedisTransport) Pop(ctx context.Context, queue string, timeout time.Duration) (*Job, error) {
	res, err := t.rdb.BRPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: brpop %s: %v", domain.ErrTransport, queue, err)
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("%w: unexpected brpop reply of %d elements", domain.ErrMalformedJob, len(res))
	}

	job, err := Decode([]byte(res[1]))
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (t *RedisTransport) Len(ctx context.Context, queue string) (int64, error) {
	n, err := t.rdb.LLen(ctx, queue).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: llen %s: %v", domain.ErrTransport, queue, err)
	}
	return n, nil
}

var _ Transport = (*RedisTransport)(nil)

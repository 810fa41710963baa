package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker serializes allocation for one appeal across service instances.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(context.Context) error, err error)
}

var ErrLockNotObtained = errors.New("allocation lock not obtained")

type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

// NoopLocker is used when no Redis is configured; the allocation marker
// alone keeps each transition to a single allocation.
type NoopLocker struct{}

func (NoopLocker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

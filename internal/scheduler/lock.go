package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JobLock lets a single replica run a job. ok is false when another holder owns key.
type JobLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// RedisJobLock implements JobLock with redislock.
type RedisJobLock struct {
	locker *redislock.Client
	logger *zap.Logger
}

// NewRedisJobLock wraps a redis client.
func NewRedisJobLock(rdb redis.UniversalClient, logger *zap.Logger) *RedisJobLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisJobLock{locker: redislock.New(rdb), logger: logger}
}

func (l *RedisJobLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lock, err := l.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	release := func() {
		// The job context may already be done; release on a fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release job lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}

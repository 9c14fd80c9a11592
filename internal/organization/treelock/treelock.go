package treelock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/logger"
)

// Key is the redis key guarding department tree edits
const Key = "plantops:departments:tree"

// RedisLocker serializes tree edits across service instances
type RedisLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewRedisLocker creates a distributed tree lock
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{locker: redislock.New(client), ttl: ttl}
}

// Lock obtains the tree lock, retrying for up to the lock ttl
func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	retries := int(l.ttl / (100 * time.Millisecond))
	lock, err := l.locker.Obtain(ctx, Key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperr.Conflict("department tree is being edited, try again")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain department tree lock: %w", err)
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx).Err(err).Msg("Failed to release department tree lock")
		}
	}, nil
}

// LocalLocker serializes tree edits within one process
type LocalLocker struct {
	mu sync.Mutex
}

// NewLocalLocker creates a process-local tree lock
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// Lock obtains the tree lock
func (l *LocalLocker) Lock(ctx context.Context) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// internal/interview/lock.go
package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StartLocker absorbs duplicate start triggers (double-clicks, gateway
// redeliveries) before any state is touched.
type StartLocker interface {
	// Acquire returns false when another start for the same applicant holds
	// the lock.
	Acquire(ctx context.Context, communityID, applicantID string) (bool, error)
}

// RedisStartLock implements StartLocker with SETNX and a short TTL. The lock
// is never released explicitly; it exists only to collapse a burst of
// triggers into one.
type RedisStartLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStartLock(client *redis.Client, ttl time.Duration) *RedisStartLock {
	return &RedisStartLock{client: client, ttl: ttl}
}

func (l *RedisStartLock) Acquire(ctx context.Context, communityID, applicantID string) (bool, error) {
	key := fmt.Sprintf("wl:start:%s:%s", communityID, applicantID)
	return l.client.SetNX(ctx, key, "1", l.ttl).Result()
}

// NoopLock always acquires. Used when redis is not configured.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context, string, string) (bool, error) {
	return true, nil
}

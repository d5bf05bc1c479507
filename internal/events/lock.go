package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SweepLock elects a single sweeper across replicas with SET NX. The lock is
// best-effort: a crashed holder's lock expires with the TTL, so the worst
// case is one skipped or one duplicated sweep, both of which the sweep
// tolerates.
type SweepLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewSweepLock(client *redis.Client, key string, ttl time.Duration) *SweepLock {
	return &SweepLock{client: client, key: key, ttl: ttl}
}

// TryLock returns true when this process acquired the lock for the TTL.
func (l *SweepLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, "1", l.ttl).Result()
}

// Unlock releases the lock early. Safe to call when not held.
func (l *SweepLock) Unlock(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}

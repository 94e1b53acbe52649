package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKey = "ingest:runlock"

// RunLock is a Redis-backed mutual exclusion guard for ingestion runs.
// Resync correctness depends on weeks landing strictly in order, so two runs
// must never interleave. The lock expires on its own if a run dies without
// releasing it.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
	token  string
}

// NewRunLock creates a RunLock whose hold expires after ttl.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

// Acquire attempts to take the lock. It returns false when another run
// already holds it.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	token := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release drops the lock if this holder still owns it. A lock that expired
// and was re-acquired by another run is left alone.
func (l *RunLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	current, err := l.client.Get(ctx, lockKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("release run lock: %w", err)
	}
	if current != l.token {
		return nil
	}
	if err := l.client.Del(ctx, lockKey).Err(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

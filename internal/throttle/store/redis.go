package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for gate scan counters
const gateCounterKeyPrefix = "throttle:gate:"

// RedisStore is the Redis-backed CounterStore. This is the production
// implementation for distributed deployments where every validator instance
// must count against the same per-gate window.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed counter store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment bumps the per-gate counter atomically. INCR and EXPIRE run in one
// transactional pipeline; ExpireNX arms the window clock only on the first
// increment so later scans cannot push the reset forward.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := gateCounterKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment gate counter: %w", err)
	}
	return incr.Val(), nil
}

var _ CounterStore = (*RedisStore)(nil)

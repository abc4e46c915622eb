// Package cache keeps short-lived read models in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/library-service/internal/domain"
)

// StatisticsKey is the Redis key holding the statistics snapshot.
const StatisticsKey = "library:statistics"

// ErrMiss is returned when no snapshot is cached.
var ErrMiss = errors.New("cache miss")

// StatisticsCache stores the statistics snapshot as JSON with a TTL.
type StatisticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatisticsCache builds a cache over client.
func NewStatisticsCache(client *redis.Client, ttl time.Duration) *StatisticsCache {
	return &StatisticsCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot or ErrMiss.
func (c *StatisticsCache) Get(ctx context.Context) (*domain.Statistics, error) {
	raw, err := c.client.Get(ctx, StatisticsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read statistics cache: %w", err)
	}

	var stats domain.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("decode statistics cache: %w", err)
	}
	return &stats, nil
}

// Set stores the snapshot. A non-positive TTL disables caching.
func (c *StatisticsCache) Set(ctx context.Context, stats *domain.Statistics) error {
	if c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode statistics cache: %w", err)
	}
	return c.client.Set(ctx, StatisticsKey, raw, c.ttl).Err()
}

// Invalidate drops the snapshot.
func (c *StatisticsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, StatisticsKey).Err()
}

// Package cache provides a Redis-backed read cache for slot capacity
// lookups. All methods are safe to call on a nil *CapacityCache, which is
// how the server runs when REDIS_URL is not configured.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const capacityTTL = 30 * time.Second

type CapacityCache struct {
	client *redis.Client
}

// New connects to Redis using a redis:// URL. An empty URL disables
// caching and returns nil.
func New(ctx context.Context, redisURL string) (*CapacityCache, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &CapacityCache{client: client}, nil
}

func capacityKey(slotID uuid.UUID) string {
	return "slot:cap:" + slotID.String()
}

// GetCapacity returns the cached remaining capacity for a slot.
// The second return value is false on a miss or when caching is disabled.
func (c *CapacityCache) GetCapacity(ctx context.Context, slotID uuid.UUID) (int, bool) {
	if c == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, capacityKey(slotID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetCapacity records the remaining capacity for a slot. Failures are
// ignored; the database stays authoritative.
func (c *CapacityCache) SetCapacity(ctx context.Context, slotID uuid.UUID, remaining int) {
	if c == nil {
		return
	}
	c.client.Set(ctx, capacityKey(slotID), strconv.Itoa(remaining), capacityTTL)
}

// Invalidate drops the cached capacity for a slot. Called after any
// booking or release so readers never see a stale entry past the TTL.
func (c *CapacityCache) Invalidate(ctx context.Context, slotID uuid.UUID) {
	if c == nil {
		return
	}
	c.client.Del(ctx, capacityKey(slotID))
}

// Close releases the underlying Redis connection.
func (c *CapacityCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/federation-system/models"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when the cache holds no entry for the category.
var ErrMiss = errors.New("occupancy cache miss")

// OccupancyCache is the fast read path for category occupancy. It is purely
// advisory: every mutation invalidates, and readers fall back to the
// allocator's counters on a miss or on any redis error.
type OccupancyCache interface {
	Get(ctx context.Context, categoryID int) (*models.Occupancy, error)
	Set(ctx context.Context, occ *models.Occupancy) error
	Invalidate(ctx context.Context, categoryID int) error
}

type redisOccupancyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOccupancyCache(client *redis.Client, ttl time.Duration) OccupancyCache {
	return &redisOccupancyCache{client: client, ttl: ttl}
}

func occupancyKey(categoryID int) string {
	return fmt.Sprintf("occupancy:category:%d", categoryID)
}

func (c *redisOccupancyCache) Get(ctx context.Context, categoryID int) (*models.Occupancy, error) {
	data, err := c.client.Get(ctx, occupancyKey(categoryID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read occupancy cache: %w", err)
	}

	var occ models.Occupancy
	if err := json.Unmarshal(data, &occ); err != nil {
		// Corrupt entry: drop it and report a miss.
		_ = c.client.Del(ctx, occupancyKey(categoryID)).Err()
		return nil, ErrMiss
	}
	return &occ, nil
}

func (c *redisOccupancyCache) Set(ctx context.Context, occ *models.Occupancy) error {
	data, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("failed to marshal occupancy: %w", err)
	}
	if err := c.client.Set(ctx, occupancyKey(occ.CategoryID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write occupancy cache: %w", err)
	}
	return nil
}

func (c *redisOccupancyCache) Invalidate(ctx context.Context, categoryID int) error {
	if err := c.client.Del(ctx, occupancyKey(categoryID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate occupancy cache: %w", err)
	}
	return nil
}

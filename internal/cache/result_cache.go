// Package cache caches a full optimization response against a hash of its
// canonicalized request, grounded on this codebase's redis-backed result
// cache — the same Set/Get/Delete-with-%w-wrapping shape, applied to one
// response type instead of several.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-optimizer/internal/optimizer"
)

const keyPrefix = "lineup-optimize:"

// ResultCache caches optimizer.Response values keyed by an
// already-computed request hash.
type ResultCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewResultCache(client *redis.Client, logger *logrus.Logger) *ResultCache {
	return &ResultCache{client: client, logger: logger}
}

func (c *ResultCache) Set(ctx context.Context, key string, resp *optimizer.Response, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal optimization result: %w", err)
	}

	fullKey := keyPrefix + key
	if err := c.client.Set(ctx, fullKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set optimization result in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key": fullKey,
		"ttl":       ttl,
		"lineups":   len(resp.Lineups),
	}).Debug("cached optimization result")
	return nil
}

// Get returns nil, nil on a cache miss so callers don't have to special
// case redis.Nil.
func (c *ResultCache) Get(ctx context.Context, key string) (*optimizer.Response, error) {
	fullKey := keyPrefix + key
	data, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get optimization result from cache: %w", err)
	}

	var resp optimizer.Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal optimization result: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("retrieved optimization result from cache")
	return &resp, nil
}

func (c *ResultCache) Delete(ctx context.Context, key string) error {
	fullKey := keyPrefix + key
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("failed to delete optimization result from cache: %w", err)
	}
	c.logger.WithField("cache_key", fullKey).Debug("deleted optimization result from cache")
	return nil
}

// Status reports basic cache occupancy, grounded on the teacher's
// GetStatus helper.
func (c *ResultCache) Status(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service":   "lineup-optimizer-cache",
		"timestamp": time.Now(),
	}
	if dbSize, err := c.client.DBSize(ctx).Result(); err == nil {
		status["db_size"] = dbSize
	}
	if keys, err := c.client.Keys(ctx, keyPrefix+"*").Result(); err == nil {
		status["cached_results"] = len(keys)
	}
	return status
}

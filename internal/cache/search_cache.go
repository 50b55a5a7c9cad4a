package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultPrefix = "search_cache:"

// RedisSearchCache stores successful search results as JSON with a TTL.
// Cache failures never fail a search; they are logged and treated as misses.
type RedisSearchCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zerolog.Logger
}

var _ vectorstore.ResultCache = (*RedisSearchCache)(nil)

func NewRedisSearchCache(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zerolog.Logger) *RedisSearchCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisSearchCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) (*vectorstore.SearchResult, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Search cache read failed")
		return nil, false
	}

	var result vectorstore.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn().Err(err).Msg("Discarding corrupt search cache entry")
		return nil, false
	}

	return &result, true
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, result vectorstore.SearchResult) {
	if result.Error != "" {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to encode search result for cache")
		return
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Search cache write failed")
	}
}

// Clear deletes every key under the cache prefix and returns how many were removed.
func (c *RedisSearchCache) Clear(ctx context.Context) (int, error) {
	var cursor uint64
	deleted := 0

	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Info().Int("deleted", deleted).Msg("Search cache cleared")
	return deleted, nil
}

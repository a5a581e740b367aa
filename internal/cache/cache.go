// Package cache holds short-lived token metadata between requests.
package cache

import (
	"context"
	"fmt"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
)

// Key returns the cache key for a token.
func Key(chain, address string) string {
	return fmt.Sprintf("bagboard:meta:%s:%s", chain, address)
}

// New returns a Redis cache when cache.redis_addr is set and reachable,
// otherwise an in-process cache. The returned func releases resources.
func New(ctx context.Context, config *common.CacheConfig, logger *common.Logger) (interfaces.MetadataCache, func() error) {
	ttl := config.GetTTL()
	if config.RedisAddr != "" {
		client, err := NewRedisClient(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err == nil {
			logger.Info().Str("addr", config.RedisAddr).Dur("ttl", ttl).Msg("Metadata cache using Redis")
			return NewRedisCache(client, ttl, logger), client.Close
		}
		logger.Warn().Err(err).Str("addr", config.RedisAddr).Msg("Redis unavailable, using in-process metadata cache")
	}
	return NewMemoryCache(ttl, config.MaxEntries), func() error { return nil }
}

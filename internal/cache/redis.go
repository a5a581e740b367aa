package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redisv9.Client, error) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}

	return client, nil
}

// RedisCache stores metadata as JSON with a TTL. Redis errors are logged
// and treated as misses.
type RedisCache struct {
	client *redisv9.Client
	ttl    time.Duration
	logger *common.Logger
}

func NewRedisCache(client *redisv9.Client, ttl time.Duration, logger *common.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.TokenMetadata, bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get metadata failed")
		return nil, false
	}

	var meta models.TokenMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("unmarshal cached metadata failed")
		return nil, false
	}
	return &meta, true
}

func (c *RedisCache) Set(ctx context.Context, key string, meta *models.TokenMetadata) {
	payload, err := json.Marshal(meta)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("marshal metadata failed")
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set metadata failed")
	}
}

var _ interfaces.MetadataCache = (*RedisCache)(nil)

package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

// DefaultMaxEntries bounds the in-process cache when no size is configured.
const DefaultMaxEntries = 10000

// MemoryCache is an in-process LRU with a per-entry TTL. Values are copied
// in and out so callers never share the cached Sources slice.
type MemoryCache struct {
	lru *expirable.LRU[string, models.TokenMetadata]
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, models.TokenMetadata](maxEntries, nil, ttl),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.TokenMetadata, bool) {
	meta, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	meta.Sources = append([]string(nil), meta.Sources...)
	return &meta, true
}

func (c *MemoryCache) Set(_ context.Context, key string, meta *models.TokenMetadata) {
	stored := *meta
	stored.Sources = append([]string(nil), meta.Sources...)
	c.lru.Add(key, stored)
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

var _ interfaces.MetadataCache = (*MemoryCache)(nil)

package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const featuredCacheKey = "featured_products"

// RedisFeaturedCache stores the featured listing as a JSON blob in Redis.
// Failures degrade to database reads; they are logged, never surfaced.
type RedisFeaturedCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisFeaturedCache wraps an existing Redis client.
func NewRedisFeaturedCache(client redis.UniversalClient, logger *zap.Logger) *RedisFeaturedCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFeaturedCache{client: client, logger: logger}
}

// Read returns the cached listing and whether the cache hit.
func (cache *RedisFeaturedCache) Read(ctx context.Context) ([]Product, bool) {
	payload, err := cache.client.Get(ctx, featuredCacheKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cache.logger.Warn("featured cache read failed",
				zap.String("code", "catalog.cache.read_error"),
				zap.Error(err))
		}
		return nil, false
	}
	var products []Product
	if unmarshalErr := json.Unmarshal([]byte(payload), &products); unmarshalErr != nil {
		cache.logger.Warn("featured cache payload corrupt",
			zap.String("code", "catalog.cache.decode_error"),
			zap.Error(unmarshalErr))
		return nil, false
	}
	return products, true
}

// Write replaces the cached listing. The entry has no TTL; it is
// rewritten whenever the featured set changes.
func (cache *RedisFeaturedCache) Write(ctx context.Context, products []Product) {
	payload, marshalErr := json.Marshal(products)
	if marshalErr != nil {
		cache.logger.Warn("featured cache encode failed",
			zap.String("code", "catalog.cache.encode_error"),
			zap.Error(marshalErr))
		return
	}
	if err := cache.client.Set(ctx, featuredCacheKey, payload, 0).Err(); err != nil {
		cache.logger.Warn("featured cache write failed",
			zap.String("code", "catalog.cache.write_error"),
			zap.Error(err))
	}
}

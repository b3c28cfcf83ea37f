package breadcrumb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/keydash/dashboard/internal/db/models"
)

const (
	// DefaultCacheTTL bounds how stale a cached API name can be.
	DefaultCacheTTL = 30 * time.Second

	cacheKeyPrefix = "keydash:breadcrumb:api:"
)

// APICache is a shared cache of API lookups beneath the per-pass memo.
type APICache interface {
	Get(ctx context.Context, id string) (*models.API, bool, error)
	Set(ctx context.Context, api *models.API) error
}

// KVClient is the subset of *redis.Client used by RedisAPICache.
type KVClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisAPICache stores APIs as msgpack values with a short TTL.
type RedisAPICache struct {
	client KVClient
	ttl    time.Duration
}

// NewRedisAPICache returns a cache over client. A non-positive ttl uses DefaultCacheTTL.
func NewRedisAPICache(client KVClient, ttl time.Duration) *RedisAPICache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisAPICache{client: client, ttl: ttl}
}

// Get returns the cached API, or ok=false on a miss.
func (c *RedisAPICache) Get(ctx context.Context, id string) (*models.API, bool, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var api models.API
	if err := msgpack.Unmarshal(raw, &api); err != nil {
		return nil, false, fmt.Errorf("decode cached api: %w", err)
	}
	return &api, true, nil
}

// Set caches api under its id.
func (c *RedisAPICache) Set(ctx context.Context, api *models.API) error {
	raw, err := msgpack.Marshal(api)
	if err != nil {
		return fmt.Errorf("encode api: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+api.ID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

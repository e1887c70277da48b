package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/models"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an entitlement lookup stays cached.
const DefaultTTL = 60 * time.Second

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *RedisCache) Get(ctx context.Context, granteeID string) (*models.EntitlementCheck, error) {
	data, err := r.client.Get(ctx, cacheKey(granteeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var check models.EntitlementCheck
	if err := json.Unmarshal(data, &check); err != nil {
		return nil, fmt.Errorf("unmarshal entitlements failed: %w", err)
	}
	return &check, nil
}

func (r *RedisCache) Set(ctx context.Context, granteeID string, check *models.EntitlementCheck) error {
	data, err := json.Marshal(check)
	if err != nil {
		return fmt.Errorf("marshal entitlements failed: %w", err)
	}
	if err := r.client.Set(ctx, cacheKey(granteeID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, granteeID string) error {
	if err := r.client.Del(ctx, cacheKey(granteeID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// NewRedisClient parses redisURL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func cacheKey(granteeID string) string {
	return fmt.Sprintf("entitlements:%s", granteeID)
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/careslot/booking-api/internal/config"
	"github.com/careslot/booking-api/internal/model"
)

// RedisCache stores slot entries in Redis with a TTL. Every operation runs
// under a short timeout so an unavailable cache degrades to durable
// computation instead of stalling requests.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

func NewRedisCache(cfg config.RedisConfig, cacheCfg config.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.MaxRetries = cfg.MaxRetries
	opts.MinRetryBackoff = cfg.RetryBackoff
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	return &RedisCache{
		client:    redis.NewClient(opts),
		ttl:       cacheCfg.TTL(),
		opTimeout: cacheCfg.OpTimeout,
	}, nil
}

func (c *RedisCache) Init(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, providerID uuid.UUID, date time.Time) ([]model.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	payload, err := c.client.Get(ctx, Key(providerID, date)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var slots []model.TimeSlot
	if err := json.Unmarshal(payload, &slots); err != nil {
		// A corrupt entry is indistinguishable from a miss; it will be
		// overwritten by the next Put or the reconciliation sweep.
		return nil, ErrMiss
	}
	return slots, nil
}

func (c *RedisCache) Put(ctx context.Context, providerID uuid.UUID, date time.Time, slots []model.TimeSlot) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	payload, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	if err := c.client.Set(ctx, Key(providerID, date), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, providerID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	iter := c.client.Scan(ctx, 0, KeyPrefix(providerID)+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache invalidate scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

func (c *RedisCache) Teardown(ctx context.Context) error {
	return c.client.Close()
}

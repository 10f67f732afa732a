package testapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/risk"
	"github.com/flowboard/backend/pkg/logger"
)

// Cache is a short-TTL redis cache for test-stat responses. It lives inside
// the provider adapter; the risk engine itself never caches.
type Cache struct {
	client *redis.Client
}

func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) SetStats(ctx context.Context, key string, stats *risk.TestStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := c.client.Set(ctx, fmt.Sprintf("teststats:%s", key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set stats cache: %w", err)
	}

	logger.Debug("Test stats cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (c *Cache) GetStats(ctx context.Context, key string) (*risk.TestStats, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("teststats:%s", key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get stats cache: %w", err)
	}

	var stats risk.TestStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	logger.Debug("Test stats cache hit", zap.String("key", key))
	return &stats, true, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/store177/shop-backend/config"
	"github.com/store177/shop-backend/pkg/logger"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance, nil when Init was skipped or failed
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// Cache stores JSON documents with a fixed TTL.
// A Cache built without a client never hits and never fails.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewCache(c *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: c, ttl: ttl, prefix: "store177:"}
}

// Enabled reports whether the cache is backed by Redis.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON decodes the cached value into dest. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		logger.Debug("Cache miss", map[string]interface{}{
			"key": key,
		})
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to read from cache", err, map[string]interface{}{
			"key": key,
		})
		return false, err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// corrupt entry, treat as a miss and let the next write replace it
		logger.Warn("Failed to decode cached value", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false, nil
	}

	logger.Debug("Cache hit", map[string]interface{}{
		"key": key,
	})
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		logger.Error("Failed to write to cache", err, map[string]interface{}{
			"key": key,
		})
		return err
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		logger.Error("Failed to delete from cache", err, map[string]interface{}{
			"keys": keys,
		})
		return err
	}

	logger.Debug("Cache entries deleted", map[string]interface{}{
		"keys": keys,
	})
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carpool-backend/internal/config"

	"github.com/go-redis/redis/v8"
)

// Cache хранилище JSON-значений с ограниченным временем жизни
type Cache interface {
	Get(ctx context.Context, key string, result interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// Incr атомарно увеличивает счетчик, ключ живет без TTL
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisCache кэш поверх Redis. Без клиента или при выключенном кэше все операции пустые.
type RedisCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	enabled     bool
}

// NewRedisCache создает новый сервис кэширования
func NewRedisCache(client *redis.Client, cfg config.CacheConfig) *RedisCache {
	return &RedisCache{
		redisClient: client,
		ttl:         cfg.TTL,
		enabled:     cfg.Enabled && client != nil,
	}
}

// Get получает данные из кэша
func (c *RedisCache) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	val, err := c.redisClient.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("ошибка при получении данных из кэша: %w", err)
	}

	if err := json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("ошибка при десериализации данных из кэша: %w", err)
	}

	return true, nil
}

// Set сохраняет данные в кэш
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации данных для кэша: %w", err)
	}

	if err := c.redisClient.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка при сохранении данных в кэш: %w", err)
	}

	return nil
}

// Delete удаляет ключи из кэша
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled || len(keys) == 0 {
		return nil
	}
	if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("ошибка при удалении данных из кэша: %w", err)
	}
	return nil
}

// Incr увеличивает счетчик. Выключенный кэш всегда возвращает 0.
func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	if !c.enabled {
		return 0, nil
	}
	n, err := c.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ошибка при увеличении счетчика в кэше: %w", err)
	}
	return n, nil
}

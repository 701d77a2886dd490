package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Lease ограничивает выполнение задачи одним экземпляром сервиса на время ttl
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// releaseScript удаляет ключ, только если он все еще принадлежит владельцу
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease аренда на основе SET NX с уникальным владельцем
type RedisLease struct {
	client *redis.Client
	key    string
	owner  string
}

func NewRedisLease(client *redis.Client, key string) *RedisLease {
	return &RedisLease{client: client, key: key, owner: uuid.NewString()}
}

func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка захвата блокировки %s: %w", l.key, err)
	}
	return ok, nil
}

func (l *RedisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("ошибка освобождения блокировки %s: %w", l.key, err)
	}
	return nil
}

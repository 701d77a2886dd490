package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistKeyPrefix = "auth:revoked:"

// TokenBlacklist хранит отозванные токены до истечения их срока действия
type TokenBlacklist struct {
	redisClient *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{redisClient: client}
}

// ключ строится из хэша, сам токен в Redis не хранится
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistKeyPrefix + hex.EncodeToString(sum[:])
}

// Revoke отзывает токен до момента expiresAt
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if b.redisClient == nil {
		return fmt.Errorf("хранилище отозванных токенов недоступно")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.redisClient.Set(ctx, blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("ошибка при отзыве токена: %w", err)
	}
	return nil
}

// IsRevoked проверяет, был ли токен отозван
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if b.redisClient == nil {
		return false, nil
	}
	n, err := b.redisClient.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке токена: %w", err)
	}
	return n > 0, nil
}

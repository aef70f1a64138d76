package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/walletgate/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the TokenStore interface
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis token store
func NewRedisStore(client redis.UniversalClient) ports.TokenStore {
	return &RedisStore{
		client: client,
		prefix: "walletgate:invalidated:",
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

// ConsumeToken uses SET NX so only one caller can ever spend a given token
func (s *RedisStore) ConsumeToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	key := s.prefix + tokenID

	ok, err := s.client.SetNX(ctx, key, "1", expiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume token: %w", err)
	}

	return ok, nil
}

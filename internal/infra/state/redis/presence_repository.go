package redisstate

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisPresenceRepository keeps the global identity -> connection id map in a
// Redis hash so several server processes share one view of who is online.
type RedisPresenceRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisPresenceRepository(client *redis.Client, keyPrefix string) *RedisPresenceRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cc:"
	}
	return &RedisPresenceRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisPresenceRepository) presenceKey() string {
	return r.keyPrefix + "presence"
}

func (r *RedisPresenceRepository) SetOnline(ctx context.Context, identity, connID string) error {
	if err := r.client.HSet(ctx, r.presenceKey(), identity, connID).Err(); err != nil {
		return fmt.Errorf("redis: set online %q: %w", identity, err)
	}
	return nil
}

func (r *RedisPresenceRepository) RemoveByConn(ctx context.Context, connID string) (string, bool, error) {
	entries, err := r.client.HGetAll(ctx, r.presenceKey()).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis: scan presence: %w", err)
	}
	for identity, mapped := range entries {
		if mapped != connID {
			continue
		}
		if err := r.client.HDel(ctx, r.presenceKey(), identity).Err(); err != nil {
			return "", false, fmt.Errorf("redis: remove presence %q: %w", identity, err)
		}
		return identity, true, nil
	}
	// The identity re-registered on a newer connection, or was never
	// registered globally.
	return "", false, nil
}

func (r *RedisPresenceRepository) ListOnline(ctx context.Context) ([]string, error) {
	identities, err := r.client.HKeys(ctx, r.presenceKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list presence: %w", err)
	}
	return identities, nil
}

package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const activeUsersKey = "active_users"

// RedisRoster keeps the online-user set in Redis so that multiple
// server instances sharing a relay also share one roster.
type RedisRoster struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisRoster(redisURL string) (*RedisRoster, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRoster{client: client, ctx: ctx}, nil
}

func (r *RedisRoster) Add(username string) error {
	return r.client.SAdd(r.ctx, activeUsersKey, username).Err()
}

func (r *RedisRoster) Remove(username string) error {
	return r.client.SRem(r.ctx, activeUsersKey, username).Err()
}

func (r *RedisRoster) List() ([]string, error) {
	return r.client.SMembers(r.ctx, activeUsersKey).Result()
}

// Clear drops the whole roster. Used by tests.
func (r *RedisRoster) Clear() error {
	return r.client.Del(r.ctx, activeUsersKey).Err()
}

func (r *RedisRoster) Close() error {
	return r.client.Close()
}

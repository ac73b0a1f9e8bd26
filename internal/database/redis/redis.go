package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"sentio/internal/config"
)

// NewClient connects to Redis and verifies the connection with a ping, so
// that a bad address or password is a startup failure rather than a runtime
// surprise.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

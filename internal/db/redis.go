package db

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/config"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates and returns a new Redis client and checks the connection.
func NewRedisClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Ping the server to ensure the connection is established.
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}

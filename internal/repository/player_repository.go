package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ConnectionStatus tells whether a player has a live websocket to its current game.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

const (
	playerGameField   = "game_id"
	playerStatusField = "connection_status"
)

//go:generate mockgen -source=player_repository.go -destination=mocks/player_repository_mock.go -package=mocks

// PlayerRepository remembers the latest game of each player so a client can
// resume it after a reload.
type PlayerRepository interface {
	SetCurrentGame(ctx context.Context, playerID, gameID string) error
	FindCurrentGame(ctx context.Context, playerID string) (gameID string, status ConnectionStatus, err error)
	UpdateConnectionStatus(ctx context.Context, playerID string, status ConnectionStatus) error
}

type redisPlayerRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPlayerRepository creates a new Redis-based PlayerRepository.
func NewPlayerRepository(rdb *redis.Client, ttl time.Duration) PlayerRepository {
	return &redisPlayerRepository{rdb: rdb, ttl: ttl}
}

func playerKey(playerID string) string {
	return fmt.Sprintf("player:%s", playerID)
}

// SetCurrentGame points the player at gameID. The player starts out disconnected.
func (r *redisPlayerRepository) SetCurrentGame(ctx context.Context, playerID, gameID string) error {
	ctx, span := tracer.Start(ctx, "PlayerRepository.SetCurrentGame", trace.WithAttributes(
		attribute.String("player.id", playerID),
		attribute.String("game.id", gameID),
	))
	defer span.End()

	key := playerKey(playerID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, playerGameField, gameID, playerStatusField, string(StatusDisconnected))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to set current game")
		return fmt.Errorf("failed to set current game in redis: %w", err)
	}
	return nil
}

// FindCurrentGame returns the latest game of the player, or ErrGameNotFound.
func (r *redisPlayerRepository) FindCurrentGame(ctx context.Context, playerID string) (string, ConnectionStatus, error) {
	ctx, span := tracer.Start(ctx, "PlayerRepository.FindCurrentGame", trace.WithAttributes(
		attribute.String("player.id", playerID),
	))
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, playerKey(playerID)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load player")
		return "", "", fmt.Errorf("failed to get player from redis: %w", err)
	}
	gameID := data[playerGameField]
	if gameID == "" {
		return "", "", ErrGameNotFound
	}

	status := ConnectionStatus(data[playerStatusField])
	if status != StatusConnected {
		status = StatusDisconnected
	}
	return gameID, status, nil
}

// UpdateConnectionStatus updates only the connection status of a player with a current game.
func (r *redisPlayerRepository) UpdateConnectionStatus(ctx context.Context, playerID string, status ConnectionStatus) error {
	ctx, span := tracer.Start(ctx, "PlayerRepository.UpdateConnectionStatus", trace.WithAttributes(
		attribute.String("player.id", playerID),
		attribute.String("player.status", string(status)),
	))
	defer span.End()

	key := playerKey(playerID)
	exists, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check player in redis: %w", err)
	}
	if exists == 0 {
		return ErrGameNotFound
	}

	if err := r.rdb.HSet(ctx, key, playerStatusField, string(status)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update connection status")
		return fmt.Errorf("failed to update connection status in redis: %w", err)
	}
	return nil
}

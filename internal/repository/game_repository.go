package repository

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("repository")

var ErrGameNotFound = errors.New("game not found")

// Storage keys, one set per game session.
const (
	FieldBoard        = "ticTacToeBoard"
	FieldActive       = "gameActive"
	FieldPlayerSymbol = "playerSymbol"
	FieldDifficulty   = "difficulty"
	FieldPlayerID     = "playerId"
)

func sessionKey(gameID, field string) string {
	return fmt.Sprintf("session:%s:%s", gameID, field)
}

//go:generate mockgen -source=game_repository.go -destination=mocks/game_repository_mock.go -package=mocks

// GameRepository persists the board and active flag of a game.
type GameRepository interface {
	Save(ctx context.Context, gameID string, state *game.GameState) error
	Load(ctx context.Context, gameID string) (*game.GameState, error)
	Delete(ctx context.Context, gameID string) error
}

type redisGameRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGameRepository creates a new Redis-based GameRepository. A zero ttl keeps keys forever.
func NewGameRepository(rdb *redis.Client, ttl time.Duration) GameRepository {
	return &redisGameRepository{rdb: rdb, ttl: ttl}
}

// Save writes the board as a JSON array of 9 strings and the active flag under separate keys.
func (r *redisGameRepository) Save(ctx context.Context, gameID string, state *game.GameState) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Save", trace.WithAttributes(
		attribute.String("game.id", gameID),
		attribute.Bool("game.active", state.Active),
	))
	defer span.End()

	boardJSON, err := json.Marshal(game.BoardToSlice(state.Board))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal board")
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(gameID, FieldBoard), boardJSON, r.ttl)
	pipe.Set(ctx, sessionKey(gameID, FieldActive), strconv.FormatBool(state.Active), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save game state")
		return fmt.Errorf("failed to save game state in redis: %w", err)
	}
	return nil
}

// Load reads the persisted state. A missing board is ErrGameNotFound; a missing
// active flag leaves the game active.
func (r *redisGameRepository) Load(ctx context.Context, gameID string) (*game.GameState, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.Load", trace.WithAttributes(
		attribute.String("game.id", gameID),
	))
	defer span.End()

	values, err := r.rdb.MGet(ctx, sessionKey(gameID, FieldBoard), sessionKey(gameID, FieldActive)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load game state")
		return nil, fmt.Errorf("failed to get game state from redis: %w", err)
	}

	rawBoard, ok := values[0].(string)
	if !ok {
		return nil, ErrGameNotFound
	}

	var cells []string
	if err := json.Unmarshal([]byte(rawBoard), &cells); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to unmarshal board")
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	board, err := game.BoardFromSlice(cells)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid persisted board")
		return nil, fmt.Errorf("invalid persisted board: %w", err)
	}

	state := &game.GameState{Board: board, Active: true}
	if rawActive, ok := values[1].(string); ok {
		state.Active = rawActive == "true"
	}
	return state, nil
}

// Delete removes the board and active flag, leaving settings untouched.
func (r *redisGameRepository) Delete(ctx context.Context, gameID string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Delete", trace.WithAttributes(
		attribute.String("game.id", gameID),
	))
	defer span.End()

	if err := r.rdb.Del(ctx, sessionKey(gameID, FieldBoard), sessionKey(gameID, FieldActive)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete game state")
		return fmt.Errorf("failed to delete game state: %w", err)
	}
	return nil
}

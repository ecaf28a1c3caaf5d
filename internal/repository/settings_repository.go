package repository

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SessionSettings are chosen once when a game starts and never change during play.
type SessionSettings struct {
	PlayerID   string
	PlayerMark game.PlayerMark
	Difficulty game.Difficulty
}

// BotMark is the mark the computer opponent plays.
func (s SessionSettings) BotMark() game.PlayerMark {
	return game.Opponent(s.PlayerMark)
}

//go:generate mockgen -source=settings_repository.go -destination=mocks/settings_repository_mock.go -package=mocks

// SettingsRepository persists per-session settings.
type SettingsRepository interface {
	Save(ctx context.Context, gameID string, settings SessionSettings) error
	Find(ctx context.Context, gameID string) (*SessionSettings, error)
}

type redisSettingsRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSettingsRepository creates a new Redis-based SettingsRepository.
func NewSettingsRepository(rdb *redis.Client, ttl time.Duration) SettingsRepository {
	return &redisSettingsRepository{rdb: rdb, ttl: ttl}
}

// Save stores the symbol and difficulty under their own keys, next to the owning player.
func (r *redisSettingsRepository) Save(ctx context.Context, gameID string, settings SessionSettings) error {
	ctx, span := tracer.Start(ctx, "SettingsRepository.Save", trace.WithAttributes(
		attribute.String("game.id", gameID),
		attribute.String("player.id", settings.PlayerID),
	))
	defer span.End()

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(gameID, FieldPlayerID), settings.PlayerID, r.ttl)
	pipe.Set(ctx, sessionKey(gameID, FieldPlayerSymbol), string(settings.PlayerMark), r.ttl)
	pipe.Set(ctx, sessionKey(gameID, FieldDifficulty), string(settings.Difficulty), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save settings")
		return fmt.Errorf("failed to save settings in redis: %w", err)
	}
	return nil
}

// Find loads the settings of a game. Missing symbol or difficulty fall back to X and easy.
func (r *redisSettingsRepository) Find(ctx context.Context, gameID string) (*SessionSettings, error) {
	ctx, span := tracer.Start(ctx, "SettingsRepository.Find", trace.WithAttributes(
		attribute.String("game.id", gameID),
	))
	defer span.End()

	values, err := r.rdb.MGet(ctx,
		sessionKey(gameID, FieldPlayerID),
		sessionKey(gameID, FieldPlayerSymbol),
		sessionKey(gameID, FieldDifficulty),
	).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load settings")
		return nil, fmt.Errorf("failed to get settings from redis: %w", err)
	}

	playerID, ok := values[0].(string)
	if !ok {
		return nil, ErrGameNotFound
	}
	symbol, _ := values[1].(string)
	difficulty, _ := values[2].(string)

	mark, err := game.ParseMark(symbol)
	if err != nil {
		mark = game.PlayerX
	}
	level, err := game.ParseDifficulty(difficulty)
	if err != nil {
		level = game.Easy
	}

	return &SessionSettings{
		PlayerID:   playerID,
		PlayerMark: mark,
		Difficulty: level,
	}, nil
}

package repository

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/models"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("api.repository")

const recentResultsLimit = 10

// ResultRepository defines the interface for finished-game records.
type ResultRepository interface {
	Record(ctx context.Context, result *models.GameResult) error
	Stats(ctx context.Context, playerID string) (*models.PlayerStats, error)
}

type sqliteResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new SQLite-based ResultRepository.
func NewResultRepository(db *sqlx.DB) ResultRepository {
	return &sqliteResultRepository{db: db}
}

// Record stores a finished game. Recording the same result ID twice is a no-op.
func (r *sqliteResultRepository) Record(ctx context.Context, result *models.GameResult) error {
	ctx, span := tracer.Start(ctx, "ResultRepository.Record", trace.WithAttributes(
		attribute.String("game.id", result.GameID),
		attribute.String("player.id", result.PlayerID),
		attribute.String("game.outcome", result.Outcome),
	))
	defer span.End()

	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now().UTC()
	}

	query := `INSERT OR IGNORE INTO game_results
		(id, game_id, player_id, player_mark, difficulty, winner, outcome, moves, finished_at)
		VALUES (:id, :game_id, :player_id, :player_mark, :difficulty, :winner, :outcome, :moves, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record game result")
		return fmt.Errorf("failed to record game result: %w", err)
	}
	return nil
}

// Stats aggregates the outcomes of every recorded game of playerID.
func (r *sqliteResultRepository) Stats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	ctx, span := tracer.Start(ctx, "ResultRepository.Stats", trace.WithAttributes(
		attribute.String("player.id", playerID),
	))
	defer span.End()

	stats := &models.PlayerStats{
		PlayerID:     playerID,
		ByDifficulty: []models.DifficultyStats{},
		Recent:       []models.GameResult{},
	}

	query := `SELECT difficulty,
			SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END) AS wins,
			SUM(CASE WHEN outcome = 'loss' THEN 1 ELSE 0 END) AS losses,
			SUM(CASE WHEN outcome = 'draw' THEN 1 ELSE 0 END) AS draws
		FROM game_results WHERE player_id = ?
		GROUP BY difficulty ORDER BY difficulty`
	if err := r.db.SelectContext(ctx, &stats.ByDifficulty, query, playerID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to aggregate game results")
		return nil, fmt.Errorf("failed to aggregate game results: %w", err)
	}
	for _, d := range stats.ByDifficulty {
		stats.Wins += d.Wins
		stats.Losses += d.Losses
		stats.Draws += d.Draws
	}
	stats.Total = stats.Wins + stats.Losses + stats.Draws

	query = `SELECT id, game_id, player_id, player_mark, difficulty, winner, outcome, moves, finished_at
		FROM game_results WHERE player_id = ?
		ORDER BY finished_at DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &stats.Recent, query, playerID, recentResultsLimit); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list recent game results")
		return nil, fmt.Errorf("failed to list recent game results: %w", err)
	}
	return stats, nil
}

package bot

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("bot")

// BotMoveCalculator implements the room.MoveCalculator interface.
type BotMoveCalculator struct {
	selector       *Selector
	moves          metric.Int64Counter
	searchDuration metric.Float64Histogram
	searchNodes    metric.Int64Histogram
}

// NewBotMoveCalculator creates a calculator whose random choices come from rng.
// Its instruments come from the meter provider installed at call time.
func NewBotMoveCalculator(rng Rand) (*BotMoveCalculator, error) {
	meter := otel.Meter("bot")
	moves, err := meter.Int64Counter("bot.moves",
		metric.WithDescription("Moves chosen by the computer opponent"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot.moves counter: %w", err)
	}
	searchDuration, err := meter.Float64Histogram("bot.search.duration",
		metric.WithDescription("Time spent choosing a move"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot.search.duration histogram: %w", err)
	}
	searchNodes, err := meter.Int64Histogram("bot.search.nodes",
		metric.WithDescription("Game tree nodes visited by minimax per move"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot.search.nodes histogram: %w", err)
	}

	return &BotMoveCalculator{
		selector:       NewSelector(rng),
		moves:          moves,
		searchDuration: searchDuration,
		searchNodes:    searchNodes,
	}, nil
}

// NewSeededBotMoveCalculator creates a calculator backed by a PCG source with the given seed.
func NewSeededBotMoveCalculator(seed uint64) (*BotMoveCalculator, error) {
	return NewBotMoveCalculator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// CalculateNextMove determines the bot's next cell. It returns -1 when the board is full.
func (c *BotMoveCalculator) CalculateNextMove(ctx context.Context, board game.Board, difficulty game.Difficulty, playerMark, botMark game.PlayerMark) int {
	ctx, span := tracer.Start(ctx, "bot.CalculateNextMove", trace.WithAttributes(
		attribute.String("bot.difficulty", string(difficulty)),
		attribute.String("bot.mark", string(botMark)),
	))
	defer span.End()

	start := time.Now()
	move, strategy, nodes := c.selector.choose(board, difficulty, playerMark, botMark)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	attrs := metric.WithAttributes(
		attribute.String("bot.difficulty", string(difficulty)),
		attribute.String("bot.strategy", string(strategy)),
	)
	c.moves.Add(ctx, 1, attrs)
	c.searchDuration.Record(ctx, elapsed, attrs)
	if strategy == StrategyOptimal {
		c.searchNodes.Record(ctx, int64(nodes), attrs)
	}

	span.SetAttributes(
		attribute.Int("move.index", move),
		attribute.String("bot.strategy", string(strategy)),
		attribute.Int("search.nodes", nodes),
	)
	slog.DebugContext(ctx, "Bot chose move", "move.index", move, "bot.difficulty", difficulty, "bot.strategy", strategy, "search.nodes", nodes)

	return move
}

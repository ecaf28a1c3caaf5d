package room

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/events"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"ctchen222/Tic-Tac-Toe-Minimax/pkg/proto"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMove places the human's mark at index and, when the game goes on,
// schedules the opponent's reply after the configured delay.
func (r *Room) HandleMove(ctx context.Context, index int) (*proto.ServerToClientMessage, error) {
	ctx, span := tracer.Start(ctx, "room.HandleMove", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.Int("move.index", index),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateMoveLocked(index); err != nil {
		slog.WarnContext(ctx, "Rejected move", "room.id", r.ID, "move.index", index, "error", err)
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))

	result, err := r.applyMoveLocked(ctx, index, r.Settings.PlayerMark)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to apply move")
		return nil, err
	}

	if !result.Over() && r.botsTurnLocked() {
		r.scheduleBotMoveLocked()
	}

	snapshot := r.snapshotLocked()
	r.broadcastLocked(ctx, snapshot)
	return snapshot, nil
}

func (r *Room) validateMoveLocked(index int) error {
	if r.closed {
		return ErrRoomClosed
	}
	if !r.state.Active {
		return game.ErrGameFinished
	}
	if index < game.CellMin || index > game.CellMax {
		return game.ErrInvalidCell
	}
	if r.state.Board[index] != game.None {
		return game.ErrCellOccupied
	}
	if r.pending != nil || game.NextTurn(r.state.Board) != r.Settings.PlayerMark {
		return game.ErrNotYourTurn
	}
	return nil
}

// applyMoveLocked mutates the board, persists it and announces a finished game.
func (r *Room) applyMoveLocked(ctx context.Context, index int, mark game.PlayerMark) (game.Result, error) {
	result, err := r.state.Move(index, mark)
	if err != nil {
		return result, err
	}
	r.lastMove = &index
	r.lastActivity = time.Now()

	slog.InfoContext(ctx, "Move applied", "room.id", r.ID, "move.index", index, "move.mark", mark)
	r.persistLocked(ctx)

	if result.Over() {
		slog.InfoContext(ctx, "Game finished", "room.id", r.ID, "game.winner", result.Winner, "game.draw", result.Draw)
		r.publishLocked(ctx, events.TypeGameFinished, events.GameFinishedPayload{
			ResultID:   uuid.New().String(),
			GameID:     r.ID,
			PlayerID:   r.Settings.PlayerID,
			PlayerMark: r.Settings.PlayerMark,
			Difficulty: r.Settings.Difficulty,
			Winner:     result.Winner,
			Draw:       result.Draw,
			Moves:      game.CellCount - len(game.EmptyCells(r.state.Board)),
		})
	}
	return result, nil
}

// Reset starts the game over with the same settings. A pending opponent move is cancelled.
func (r *Room) Reset(ctx context.Context) (*proto.ServerToClientMessage, error) {
	ctx, span := tracer.Start(ctx, "room.Reset", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		span.SetStatus(codes.Error, ErrRoomClosed.Error())
		return nil, ErrRoomClosed
	}

	r.cancelPendingLocked()
	r.state.Reset()
	r.lastMove = nil
	r.lastActivity = time.Now()

	if err := r.gameRepo.Delete(ctx, r.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to clear game state", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to clear game state")
	}
	r.persistLocked(ctx)
	r.publishLocked(ctx, events.TypeGameReset, events.GameResetPayload{
		GameID:   r.ID,
		PlayerID: r.Settings.PlayerID,
	})
	slog.InfoContext(ctx, "Game reset", "room.id", r.ID)

	if r.botsTurnLocked() {
		r.scheduleBotMoveLocked()
	}

	snapshot := r.snapshotLocked()
	r.broadcastLocked(ctx, snapshot)
	return snapshot, nil
}

// scheduleBotMoveLocked arms the delayed opponent move. While it is pending
// the human cannot move.
func (r *Room) scheduleBotMoveLocked() {
	r.cancelPendingLocked()
	seq := r.seq
	r.pending = time.AfterFunc(r.aiMoveDelay, func() {
		r.playBotMove(seq)
	})
}

// cancelPendingLocked stops the pending opponent move. Bumping seq makes a
// timer that already fired a no-op.
func (r *Room) cancelPendingLocked() {
	r.seq++
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

func (r *Room) playBotMove(seq uint64) {
	ctx, span := tracer.Start(context.Background(), "room.playBotMove", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("bot.difficulty", string(r.Settings.Difficulty)),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq || r.pending == nil {
		span.SetAttributes(attribute.Bool("bot.cancelled", true))
		return
	}
	r.pending = nil
	// Clients learn that the opponent stopped thinking even when it could not move.
	defer func() {
		r.broadcastLocked(ctx, r.snapshotLocked())
	}()

	if !r.botsTurnLocked() {
		return
	}

	botMark := r.Settings.BotMark()
	index := r.moveCalculator.CalculateNextMove(ctx, r.state.Board, r.Settings.Difficulty, r.Settings.PlayerMark, botMark)
	if index < 0 {
		slog.WarnContext(ctx, "Opponent found no move", "room.id", r.ID)
		return
	}
	span.SetAttributes(attribute.Int("move.index", index))

	if _, err := r.applyMoveLocked(ctx, index, botMark); err != nil {
		slog.ErrorContext(ctx, "Opponent produced an invalid move", "room.id", r.ID, "move.index", index, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Opponent produced an invalid move")
	}
}

// persistLocked saves the state. The in-memory state stays authoritative when Redis is unavailable.
func (r *Room) persistLocked(ctx context.Context) {
	if err := r.gameRepo.Save(ctx, r.ID, r.state); err != nil {
		slog.ErrorContext(ctx, "Failed to persist game state", "room.id", r.ID, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

func (r *Room) publishLocked(ctx context.Context, eventType string, payload any) {
	event, err := events.New(eventType, payload)
	if err == nil {
		err = r.publisher.Publish(ctx, event)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish event", "room.id", r.ID, "event.type", eventType, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

package hub

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/models"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/events"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func (h *Hub) runEventSubscriber(ctx context.Context) {
	slog.InfoContext(ctx, "Event subscriber started", "channel", events.EventsChannel)
	pubsub := h.rdb.Subscribe(ctx, events.EventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleEvent(ctx, msg.Payload)
		}
	}
}

func (h *Hub) handleEvent(ctx context.Context, raw string) {
	ctx, span := tracer.Start(ctx, "hub.handleEvent", trace.WithAttributes(
		attribute.String("event.channel", events.EventsChannel),
	))
	defer span.End()

	var event events.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		slog.ErrorContext(ctx, "Could not unmarshal global event", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not unmarshal global event")
		return
	}
	span.SetAttributes(attribute.String("event.type", event.Type))

	switch event.Type {
	case events.TypeGameFinished:
		var payload events.GameFinishedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal game_finished payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal game_finished payload")
			return
		}
		h.handleGameFinished(ctx, &payload)

	case events.TypeGameStarted, events.TypeGameReset:
		slog.DebugContext(ctx, "Received game event", "event.type", event.Type)

	default:
		slog.WarnContext(ctx, "Unknown event type", "event.type", event.Type)
	}
}

func (h *Hub) handleGameFinished(ctx context.Context, payload *events.GameFinishedPayload) {
	ctx, span := tracer.Start(ctx, "hub.handleGameFinished", trace.WithAttributes(
		attribute.String("room.id", payload.GameID),
		attribute.String("player.id", payload.PlayerID),
	))
	defer span.End()

	outcome := models.OutcomeFor(payload.PlayerMark, payload.Winner, payload.Draw)
	h.gamesFinished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("game.result", outcome),
		attribute.String("bot.difficulty", string(payload.Difficulty)),
	))
	slog.InfoContext(ctx, "Received game_finished event", "room.id", payload.GameID, "player.id", payload.PlayerID, "game.result", outcome)

	if h.results == nil {
		return
	}
	err := h.results.Record(ctx, &models.GameResult{
		ID:         payload.ResultID,
		GameID:     payload.GameID,
		PlayerID:   payload.PlayerID,
		PlayerMark: string(payload.PlayerMark),
		Difficulty: string(payload.Difficulty),
		Winner:     string(payload.Winner),
		Outcome:    outcome,
		Moves:      payload.Moves,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record game result", "room.id", payload.GameID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record game result")
	}
}

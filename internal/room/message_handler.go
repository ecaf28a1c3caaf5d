package room

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/player"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/validator"
	"ctchen222/Tic-Tac-Toe-Minimax/pkg/proto"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMessage handles a message from a player. It acts as a dispatcher.
// Rejected messages are answered with an error message to the sender only.
func (r *Room) HandleMessage(ctx context.Context, p *player.Player, rawMessage []byte) {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		r.sendError(ctx, p, "malformed message")
		return
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.sendError(ctx, p, "invalid message")
		return
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	var err error
	switch message.Type {
	case proto.TypeMove:
		if message.Index == nil {
			err = game.ErrInvalidCell
			break
		}
		_, err = r.HandleMove(ctx, *message.Index)
	case proto.TypeReset:
		_, err = r.Reset(ctx)
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.sendError(ctx, p, err.Error())
	}
}

func (r *Room) sendError(ctx context.Context, p *player.Player, reason string) {
	r.SendTo(ctx, p, &proto.ServerToClientMessage{Type: proto.TypeError, GameID: r.ID, Reason: reason})
}

package hub

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/player"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/room"
	"ctchen222/Tic-Tac-Toe-Minimax/pkg/proto"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (h *Hub) sendInitialRoomState(ctx context.Context, r *room.Room, p *player.Player) {
	ctx, span := tracer.Start(ctx, "hub.sendInitialRoomState", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("player.id", p.ID),
	))
	defer span.End()

	slog.InfoContext(ctx, "Sending initial room state", "room.id", r.ID, "player.id", p.ID)

	r.SendTo(ctx, p, &proto.PlayerAssignmentMessage{
		Type:     proto.TypeAssignment,
		PlayerID: p.ID,
		GameID:   r.ID,
		Mark:     r.Settings.PlayerMark,
	})
	r.SendTo(ctx, p, r.Snapshot())
}

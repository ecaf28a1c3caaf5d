package room

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/player"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Broadcast sends a message to every connection on the room.
func (r *Room) Broadcast(ctx context.Context, message any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(ctx, message)
}

func (r *Room) broadcastLocked(ctx context.Context, message any) {
	_, span := tracer.Start(ctx, "room.Broadcast", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.Int("players.count", len(r.players)),
	))
	defer span.End()

	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling message")
		return
	}

	for _, p := range r.players {
		if err := p.Send(data); err != nil {
			slog.ErrorContext(ctx, "error writing message to player", "player.id", p.ID, "room.id", r.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Error writing message to player")
		}
	}
}

// SendTo sends a message to a single connection.
func (r *Room) SendTo(ctx context.Context, p *player.Player, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		return
	}
	if err := p.Send(data); err != nil {
		slog.ErrorContext(ctx, "error writing message to player", "player.id", p.ID, "room.id", r.ID, "error", err)
	}
}

// ReadPump feeds messages from the connection into HandleMessage until the connection fails.
func (r *Room) ReadPump(p *player.Player) {
	ctx, span := tracer.Start(context.Background(), "room.ReadPump", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	defer func() {
		p.Conn.Close()
		r.RemovePlayer(p)
		if r.unregister != nil {
			select {
			case r.unregister <- &types.UnregisterRequest{Player: p, GameID: r.ID}:
			case <-r.Done:
			}
		}
		slog.InfoContext(ctx, "Player disconnected", "player.id", p.ID, "room.id", r.ID)
	}()

	for {
		_, msg, err := p.Conn.ReadMessage()
		if err != nil {
			slog.WarnContext(ctx, "Player connection error", "player.id", p.ID, "room.id", r.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Player connection error")
			return
		}
		r.HandleMessage(ctx, p, msg)
	}
}

func (r *Room) runHeartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Done:
			return
		case <-ticker.C:
			r.mu.Lock()
			players := append([]*player.Player(nil), r.players...)
			r.mu.Unlock()

			for _, p := range players {
				if err := p.Ping(); err != nil {
					slog.Warn("Failed to send ping to player, assuming disconnect", "player.id", p.ID, "room.id", r.ID, "error", err)
				}
			}
		}
	}
}

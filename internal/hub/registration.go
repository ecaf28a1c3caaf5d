package hub

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/room"
	"ctchen222/Tic-Tac-Toe-Minimax/pkg/proto"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleRegistration attaches a websocket connection to its room and sends
// the player its mark and the current board.
func (h *Hub) handleRegistration(req *types.RegistrationRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracer.Start(ctx, "hub.handleRegistration", trace.WithAttributes(
		attribute.String("player.id", req.Player.ID),
		attribute.String("room.id", req.GameID),
	))
	defer span.End()

	r, err := h.GetRoom(ctx, req.GameID, req.Player.ID)
	if err == nil && !r.AddPlayer(req.Player) {
		err = room.ErrRoomClosed
	}
	if err != nil {
		slog.WarnContext(ctx, "Registration failed", "player.id", req.Player.ID, "room.id", req.GameID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Registration failed")
		h.rejectConnection(ctx, req, err)
		return
	}

	go r.ReadPump(req.Player)
	slog.InfoContext(ctx, "Player connected to game", "player.id", req.Player.ID, "room.id", req.GameID, "players.count", r.PlayerCount())
	h.updateConnectionStatus(ctx, req.Player.ID, repository.StatusConnected)

	h.sendInitialRoomState(ctx, r, req.Player)
}

// handleUnregister marks the player disconnected once its last connection to the room is gone.
func (h *Hub) handleUnregister(req *types.UnregisterRequest) {
	slog.Info("Connection left game", "player.id", req.Player.ID, "room.id", req.GameID)

	h.mu.Lock()
	r, ok := h.rooms[req.GameID]
	h.mu.Unlock()
	if ok && r.PlayerCount() > 0 {
		return
	}
	h.updateConnectionStatus(context.Background(), req.Player.ID, repository.StatusDisconnected)
}

func (h *Hub) updateConnectionStatus(ctx context.Context, playerID string, status repository.ConnectionStatus) {
	if h.playerRepo == nil {
		return
	}
	err := h.playerRepo.UpdateConnectionStatus(ctx, playerID, status)
	if err != nil && !errors.Is(err, repository.ErrGameNotFound) {
		slog.WarnContext(ctx, "Failed to update connection status", "player.id", playerID, "player.status", status, "error", err)
	}
}

func (h *Hub) rejectConnection(ctx context.Context, req *types.RegistrationRequest, err error) {
	msg := &proto.ServerToClientMessage{Type: proto.TypeError, GameID: req.GameID, Reason: err.Error()}
	data, marshalErr := json.Marshal(msg)
	if marshalErr == nil {
		if sendErr := req.Player.Send(data); sendErr != nil {
			slog.WarnContext(ctx, "Failed to send rejection", "player.id", req.Player.ID, "error", sendErr)
		}
	}
	req.Player.Conn.Close()
}

// rehydrateRoom rebuilds a room from storage. The caller holds h.mu.
func (h *Hub) rehydrateRoom(ctx context.Context, gameID, playerID string) (*room.Room, error) {
	ctx, span := tracer.Start(ctx, "hub.rehydrateRoom", trace.WithAttributes(
		attribute.String("room.id", gameID),
	))
	defer span.End()

	settings, err := h.settingsRepo.Find(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if settings.PlayerID != playerID {
		return nil, ErrForbidden
	}

	state, err := h.gameRepo.Load(ctx, gameID)
	if errors.Is(err, repository.ErrGameNotFound) {
		state = game.NewGameState()
	} else if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Room rehydrated from storage", "room.id", gameID, "game.active", state.Active)
	return h.createAndStartRoom(ctx, gameID, *settings, state), nil
}

// createAndStartRoom registers and starts a room. The caller holds h.mu.
func (h *Hub) createAndStartRoom(ctx context.Context, gameID string, settings repository.SessionSettings, state *game.GameState) *room.Room {
	_, span := tracer.Start(ctx, "hub.createAndStartRoom", trace.WithAttributes(
		attribute.String("room.id", gameID),
	))
	defer span.End()

	r := room.NewRoom(gameID, settings, state, h.gameRepo, h.publisher, h.calculator, h.aiMoveDelay)
	r.SetUnregister(h.unregister)
	h.rooms[gameID] = r
	r.Start()
	return r
}

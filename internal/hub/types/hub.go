package types

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/player"
)

// RegistrationRequest attaches a websocket connection to a game.
// The server has already checked that the player owns the game.
type RegistrationRequest struct {
	Player *player.Player
	GameID string
	Ctx    context.Context
}

// UnregisterRequest detaches a closed connection from its game.
type UnregisterRequest struct {
	Player *player.Player
	GameID string
}

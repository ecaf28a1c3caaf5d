package proto

import "ctchen222/Tic-Tac-Toe-Minimax/internal/game"

// Message types exchanged over the websocket.
const (
	TypeMove       = "move"
	TypeReset      = "reset"
	TypeUpdate     = "update"
	TypeAssignment = "assignment"
	TypeError      = "error"
)

// ClientToServerMessage represents a message from the client to the server.
// Index is only read for "move" messages.
type ClientToServerMessage struct {
	Type  string `json:"type" validate:"required,oneof=move reset"`
	Index *int   `json:"index,omitempty" validate:"omitempty,min=0,max=8"`
}

// ServerToClientMessage represents a message from the server to the client.
// An "update" carries the full game snapshot, so the state fields are always
// present; Winner and Draw announce the end of the game.
type ServerToClientMessage struct {
	Type       string          `json:"type" validate:"required"`
	Reason     string          `json:"reason,omitempty"`
	GameID     string          `json:"gameId,omitempty"`
	Board      []string        `json:"board,omitempty"`
	Active     bool            `json:"active"`
	Next       game.PlayerMark `json:"next"`
	Winner     game.PlayerMark `json:"winner"`
	Draw       bool            `json:"draw"`
	PlayerMark game.PlayerMark `json:"playerMark,omitempty"`
	BotMark    game.PlayerMark `json:"botMark,omitempty"`
	Difficulty game.Difficulty `json:"difficulty,omitempty"`
	LastMove   *int            `json:"lastMove"`
	Thinking   bool            `json:"thinking"`
}

// PlayerAssignmentMessage informs a player of their assigned mark.
type PlayerAssignmentMessage struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId,omitempty"`
	GameID   string          `json:"gameId,omitempty"`
	Mark     game.PlayerMark `json:"mark"`
}

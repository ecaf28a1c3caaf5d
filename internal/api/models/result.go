package models

import (
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"time"
)

// Outcome of a finished game from the human's side.
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeDraw = "draw"
)

// GameResult is one finished game.
type GameResult struct {
	ID         string    `db:"id" json:"id"`
	GameID     string    `db:"game_id" json:"game_id"`
	PlayerID   string    `db:"player_id" json:"player_id"`
	PlayerMark string    `db:"player_mark" json:"player_mark"`
	Difficulty string    `db:"difficulty" json:"difficulty"`
	Winner     string    `db:"winner" json:"winner"`
	Outcome    string    `db:"outcome" json:"outcome"`
	Moves      int       `db:"moves" json:"moves"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

// OutcomeFor derives the outcome for the player holding mark.
func OutcomeFor(mark, winner game.PlayerMark, draw bool) string {
	switch {
	case draw || winner == game.None:
		return OutcomeDraw
	case winner == mark:
		return OutcomeWin
	default:
		return OutcomeLoss
	}
}

// DifficultyStats counts outcomes at one difficulty.
type DifficultyStats struct {
	Difficulty string `db:"difficulty" json:"difficulty"`
	Wins       int    `db:"wins" json:"wins"`
	Losses     int    `db:"losses" json:"losses"`
	Draws      int    `db:"draws" json:"draws"`
}

// PlayerStats summarizes every finished game of a player.
type PlayerStats struct {
	PlayerID     string            `json:"player_id"`
	Wins         int               `json:"wins"`
	Losses       int               `json:"losses"`
	Draws        int               `json:"draws"`
	Total        int               `json:"total"`
	ByDifficulty []DifficultyStats `json:"by_difficulty"`
	Recent       []GameResult      `json:"recent"`
}

// CreateGameRequest starts a new game. Empty fields fall back to X and easy.
type CreateGameRequest struct {
	Symbol     string `json:"symbol" binding:"omitempty,mark"`
	Difficulty string `json:"difficulty" binding:"omitempty,difficulty"`
}

// MoveRequest places the caller's mark.
type MoveRequest struct {
	Index *int `json:"index" binding:"required,min=0,max=8"`
}

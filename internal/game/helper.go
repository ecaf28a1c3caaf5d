package game

import (
	"fmt"
	"strings"
)

// Opponent returns the other mark.
func Opponent(mark PlayerMark) PlayerMark {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// ParseMark accepts "X" or "O" in either case. An empty string yields the default X.
func ParseMark(s string) (PlayerMark, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(PlayerX):
		return PlayerX, nil
	case string(PlayerO):
		return PlayerO, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrInvalidMark, s)
	}
}

// ParseDifficulty accepts the three tiers in either case. An empty string yields Easy.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Easy, nil
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
}

// BoardToSlice converts the board to the persisted form: 9 strings, "" for empty.
func BoardToSlice(board Board) []string {
	cells := make([]string, CellCount)
	for i, cell := range board {
		cells[i] = string(cell)
	}
	return cells
}

// BoardFromSlice parses the persisted form back into a Board.
func BoardFromSlice(cells []string) (Board, error) {
	var board Board
	if len(cells) != CellCount {
		return board, fmt.Errorf("board must have %d cells, got %d", CellCount, len(cells))
	}
	for i, cell := range cells {
		switch PlayerMark(cell) {
		case None, PlayerX, PlayerO:
			board[i] = PlayerMark(cell)
		default:
			return board, fmt.Errorf("%w at cell %d: %q", ErrInvalidMark, i, cell)
		}
	}
	return board, nil
}

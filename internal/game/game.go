package game

import (
	"errors"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

// Difficulty governs how the computer opponent picks its moves.
type Difficulty string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Difficulty tiers
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"

	// Board boundaries
	CellMin   = 0
	CellMax   = 8
	CellCount = 9
)

var (
	ErrGameFinished      = errors.New("game is already finished")
	ErrInvalidCell       = errors.New("invalid cell index")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrInvalidMark       = errors.New("invalid player mark")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// Board is the 3x3 grid in row-major order.
type Board [CellCount]PlayerMark

// WinLines lists every row, column and diagonal in the order they are checked.
var WinLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Result is the verdict for a board: a winner, a draw, or neither.
type Result struct {
	Winner PlayerMark
	Draw   bool
}

// Over reports whether the result is terminal.
func (r Result) Over() bool {
	return r.Winner != None || r.Draw
}

// EmptyCells returns the indices of every unoccupied cell in ascending order.
func EmptyCells(board Board) []int {
	cells := make([]int, 0, CellCount)
	for i, cell := range board {
		if cell == None {
			cells = append(cells, i)
		}
	}
	return cells
}

// IsFull reports whether no cell is left unoccupied.
func IsFull(board Board) bool {
	for _, cell := range board {
		if cell == None {
			return false
		}
	}
	return true
}

// Winner returns the mark owning the first complete line, or None.
func Winner(board Board) PlayerMark {
	for _, line := range WinLines {
		a := board[line[0]]
		if a != None && a == board[line[1]] && a == board[line[2]] {
			return a
		}
	}
	return None
}

// Evaluate combines Winner and IsFull into a single verdict.
func Evaluate(board Board) Result {
	if w := Winner(board); w != None {
		return Result{Winner: w}
	}
	return Result{Draw: IsFull(board)}
}

// NextTurn returns the mark expected to move next. X always opens.
func NextTurn(board Board) PlayerMark {
	var x, o int
	for _, cell := range board {
		switch cell {
		case PlayerX:
			x++
		case PlayerO:
			o++
		}
	}
	if x == o {
		return PlayerX
	}
	return PlayerO
}

// GameState is a board plus the flag gating further moves.
type GameState struct {
	Board  Board
	Active bool
}

// NewGameState returns an empty, active game.
func NewGameState() *GameState {
	return &GameState{Active: true}
}

// Move places mark at index and deactivates the game when it becomes terminal.
func (g *GameState) Move(index int, mark PlayerMark) (Result, error) {
	if !g.Active {
		return Result{}, ErrGameFinished
	}
	if index < CellMin || index > CellMax {
		return Result{}, ErrInvalidCell
	}
	if g.Board[index] != None {
		return Result{}, ErrCellOccupied
	}

	g.Board[index] = mark

	result := Evaluate(g.Board)
	if result.Over() {
		g.Active = false
	}
	return result, nil
}

// Result reports the current verdict of the game.
func (g *GameState) Result() Result {
	return Evaluate(g.Board)
}

// Reset replaces the state with a fresh game.
func (g *GameState) Reset() {
	g.Board = Board{}
	g.Active = true
}

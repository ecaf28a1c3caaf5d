package bot

import (
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"math"
	"sync"
)

const winScore = 10

// Strategy records which branch of the difficulty policy produced a move.
type Strategy string

const (
	StrategyOptimal Strategy = "optimal"
	StrategyRandom  Strategy = "random"
)

// Rand is the randomness the selector draws from. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type search struct {
	player   game.PlayerMark
	opponent game.PlayerMark
	nodes    int
}

// minimax scores board from the opponent's point of view. Every hypothetical
// placement is undone before returning, so board is left as it was found.
func (s *search) minimax(board *game.Board, depth int, maximizing bool) int {
	s.nodes++

	switch game.Winner(*board) {
	case s.opponent:
		return winScore - depth
	case s.player:
		return depth - winScore
	}
	if game.IsFull(*board) {
		return 0
	}

	if maximizing {
		best := math.MinInt
		for i := range board {
			if board[i] != game.None {
				continue
			}
			board[i] = s.opponent
			best = max(best, s.minimax(board, depth+1, false))
			board[i] = game.None
		}
		return best
	}

	best := math.MaxInt
	for i := range board {
		if board[i] != game.None {
			continue
		}
		board[i] = s.player
		best = min(best, s.minimax(board, depth+1, true))
		board[i] = game.None
	}
	return best
}

// bestMove returns the first cell with the highest score, or -1 on a full board.
func (s *search) bestMove(board *game.Board) int {
	bestScore := math.MinInt
	move := -1
	for i := range board {
		if board[i] != game.None {
			continue
		}
		board[i] = s.opponent
		score := s.minimax(board, 0, false)
		board[i] = game.None

		if score > bestScore {
			bestScore = score
			move = i
		}
	}
	return move
}

// Minimax scores board for the opponent: 10-depth for an opponent win,
// depth-10 for a player win, 0 for a draw. board is restored before returning.
func Minimax(board *game.Board, depth int, maximizing bool, player, opponent game.PlayerMark) int {
	s := &search{player: player, opponent: opponent}
	return s.minimax(board, depth, maximizing)
}

// BestMove returns the optimal cell for opponent to play next.
// Ties go to the lowest index. The board must not be full; if it is, -1 is returned.
func BestMove(board game.Board, player, opponent game.PlayerMark) int {
	s := &search{player: player, opponent: opponent}
	return s.bestMove(&board)
}

// ScoreMoves returns the minimax score of every empty cell as the opponent's next move.
func ScoreMoves(board game.Board, player, opponent game.PlayerMark) map[int]int {
	s := &search{player: player, opponent: opponent}
	scores := make(map[int]int)
	for _, i := range game.EmptyCells(board) {
		board[i] = opponent
		scores[i] = s.minimax(&board, 0, false)
		board[i] = game.None
	}
	return scores
}

// Selector applies the difficulty policy on top of the search.
type Selector struct {
	mu  sync.Mutex
	rng Rand
}

// NewSelector creates a Selector drawing from rng.
func NewSelector(rng Rand) *Selector {
	return &Selector{rng: rng}
}

// ChooseMove picks the opponent's next cell according to difficulty.
// The board must have at least one empty cell; otherwise -1 is returned.
func (s *Selector) ChooseMove(board game.Board, difficulty game.Difficulty, player, opponent game.PlayerMark) int {
	move, _, _ := s.choose(board, difficulty, player, opponent)
	return move
}

// choose also reports which strategy was used and how many nodes the search visited.
func (s *Selector) choose(board game.Board, difficulty game.Difficulty, player, opponent game.PlayerMark) (int, Strategy, int) {
	available := game.EmptyCells(board)
	if len(available) == 0 {
		return -1, StrategyRandom, 0
	}

	optimal := false
	switch difficulty {
	case game.Easy:
	case game.Medium:
		optimal = s.randFloat() < 0.5
	default:
		optimal = true
	}

	if !optimal {
		return available[s.randIntN(len(available))], StrategyRandom, 0
	}

	sr := &search{player: player, opponent: opponent}
	move := sr.bestMove(&board)
	return move, StrategyOptimal, sr.nodes
}

func (s *Selector) randFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Selector) randIntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

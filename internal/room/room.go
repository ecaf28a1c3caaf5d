package room

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/events"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/player"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/pkg/proto"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	heartbeatInterval = 10 * time.Second
)

var tracer = otel.Tracer("room")

var ErrRoomClosed = errors.New("room closed")

// MoveCalculator defines an interface for an agent that can calculate a game move.
type MoveCalculator interface {
	CalculateNextMove(ctx context.Context, board game.Board, difficulty game.Difficulty, playerMark, botMark game.PlayerMark) int
}

// Room runs one game session between a human and the computer opponent.
// All board mutations happen under mu.
type Room struct {
	ID       string
	Settings repository.SessionSettings

	mu           sync.Mutex
	state        *game.GameState
	lastMove     *int
	players      []*player.Player
	pending      *time.Timer
	seq          uint64
	closed       bool
	lastActivity time.Time

	gameRepo       repository.GameRepository
	publisher      events.Publisher
	moveCalculator MoveCalculator
	aiMoveDelay    time.Duration
	unregister     chan<- *types.UnregisterRequest
	Done           chan struct{}
}

// NewRoom creates a new game room around an existing state.
func NewRoom(id string, settings repository.SessionSettings, state *game.GameState, gameRepo repository.GameRepository, publisher events.Publisher, calculator MoveCalculator, aiMoveDelay time.Duration) *Room {
	if state == nil {
		state = game.NewGameState()
	}
	return &Room{
		ID:             id,
		Settings:       settings,
		state:          state,
		players:        make([]*player.Player, 0, 1),
		lastActivity:   time.Now(),
		gameRepo:       gameRepo,
		publisher:      publisher,
		moveCalculator: calculator,
		aiMoveDelay:    aiMoveDelay,
		Done:           make(chan struct{}),
	}
}

// SetUnregister sets the channel closed connections are reported to.
func (r *Room) SetUnregister(ch chan<- *types.UnregisterRequest) {
	r.unregister = ch
}

// Start launches the heartbeat and lets the opponent open when it is its turn.
func (r *Room) Start() {
	_, span := tracer.Start(context.Background(), "room.Start", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("player.mark", string(r.Settings.PlayerMark)),
		attribute.String("bot.difficulty", string(r.Settings.Difficulty)),
	))
	defer span.End()

	go r.runHeartbeat()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.botsTurnLocked() {
		slog.Info("Opponent to move on start", "room.id", r.ID, "bot.mark", r.Settings.BotMark())
		r.scheduleBotMoveLocked()
	}
}

// Close cancels any pending opponent move, stops the heartbeat and drops every connection.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.cancelPendingLocked()
	players := r.players
	r.players = nil
	close(r.Done)
	r.mu.Unlock()

	for _, p := range players {
		p.Conn.Close()
	}
	slog.Info("Room closed", "room.id", r.ID)
}

// Snapshot returns the current state as an update message.
func (r *Room) Snapshot() *proto.ServerToClientMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() *proto.ServerToClientMessage {
	result := r.state.Result()
	msg := &proto.ServerToClientMessage{
		Type:       proto.TypeUpdate,
		GameID:     r.ID,
		Board:      game.BoardToSlice(r.state.Board),
		Active:     r.state.Active,
		Winner:     result.Winner,
		Draw:       result.Draw,
		PlayerMark: r.Settings.PlayerMark,
		BotMark:    r.Settings.BotMark(),
		Difficulty: r.Settings.Difficulty,
		Thinking:   r.pending != nil,
	}
	if r.state.Active {
		msg.Next = game.NextTurn(r.state.Board)
	}
	if r.lastMove != nil {
		last := *r.lastMove
		msg.LastMove = &last
	}
	return msg
}

func (r *Room) botsTurnLocked() bool {
	return !r.closed && r.state.Active && !game.IsFull(r.state.Board) && game.NextTurn(r.state.Board) == r.Settings.BotMark()
}

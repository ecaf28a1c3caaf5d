package hub

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/models"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/events"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/room"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("hub")
	meter  = otel.Meter("hub")
)

var ErrForbidden = errors.New("game belongs to another player")

// ResultRecorder stores finished games.
type ResultRecorder interface {
	Record(ctx context.Context, result *models.GameResult) error
}

// Deps are the collaborators of a Hub. RDB, PlayerRepo and Results may be nil,
// which disables the event subscriber, game resumption and result recording.
type Deps struct {
	RDB          *redis.Client
	GameRepo     repository.GameRepository
	SettingsRepo repository.SettingsRepository
	PlayerRepo   repository.PlayerRepository
	Publisher    events.Publisher
	Results      ResultRecorder
	Calculator   room.MoveCalculator
	AIMoveDelay  time.Duration
	IdleTimeout  time.Duration
}

// Hub manages all the live rooms of this server.
type Hub struct {
	mu         sync.Mutex
	rooms      map[string]*room.Room
	register   chan *types.RegistrationRequest
	unregister chan *types.UnregisterRequest
	done       chan struct{}

	rdb           *redis.Client
	gameRepo      repository.GameRepository
	settingsRepo  repository.SettingsRepository
	playerRepo    repository.PlayerRepository
	publisher     events.Publisher
	results       ResultRecorder
	calculator    room.MoveCalculator
	aiMoveDelay   time.Duration
	idleTimeout   time.Duration
	gamesFinished metric.Int64Counter
}

// NewHub creates a new hub.
func NewHub(deps Deps) (*Hub, error) {
	gamesFinished, err := meter.Int64Counter("games.finished",
		metric.WithDescription("Finished games by outcome for the human player"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create games.finished counter: %w", err)
	}

	return &Hub{
		rooms:         make(map[string]*room.Room),
		register:      make(chan *types.RegistrationRequest),
		unregister:    make(chan *types.UnregisterRequest),
		done:          make(chan struct{}),
		rdb:           deps.RDB,
		gameRepo:      deps.GameRepo,
		settingsRepo:  deps.SettingsRepo,
		playerRepo:    deps.PlayerRepo,
		publisher:     deps.Publisher,
		results:       deps.Results,
		calculator:    deps.Calculator,
		aiMoveDelay:   deps.AIMoveDelay,
		idleTimeout:   deps.IdleTimeout,
		gamesFinished: gamesFinished,
	}, nil
}

// Run starts the hub and blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.runEventSubscriber(ctx)
	}
	go h.runJanitor(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Hub stopping")
			close(h.done)
			h.Close()
			return
		case req := <-h.register:
			h.handleRegistration(req)
		case req := <-h.unregister:
			h.handleUnregister(req)
		}
	}
}

// CreateGame starts a new session for playerID and returns its room.
func (h *Hub) CreateGame(ctx context.Context, playerID string, mark game.PlayerMark, difficulty game.Difficulty) (*room.Room, error) {
	ctx, span := tracer.Start(ctx, "hub.CreateGame", trace.WithAttributes(
		attribute.String("player.id", playerID),
		attribute.String("player.mark", string(mark)),
		attribute.String("bot.difficulty", string(difficulty)),
	))
	defer span.End()

	gameID := uuid.New().String()
	span.SetAttributes(attribute.String("room.id", gameID))

	settings := repository.SessionSettings{PlayerID: playerID, PlayerMark: mark, Difficulty: difficulty}
	if err := h.settingsRepo.Save(ctx, gameID, settings); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save settings")
		return nil, err
	}
	state := game.NewGameState()
	if err := h.gameRepo.Save(ctx, gameID, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save initial state")
		return nil, err
	}

	event, err := events.New(events.TypeGameStarted, events.GameStartedPayload{
		GameID:     gameID,
		PlayerID:   playerID,
		PlayerMark: mark,
		Difficulty: difficulty,
	})
	if err == nil {
		err = h.publisher.Publish(ctx, event)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish game_started event", "room.id", gameID, "error", err)
		span.RecordError(err)
	}

	if h.playerRepo != nil {
		if err := h.playerRepo.SetCurrentGame(ctx, playerID, gameID); err != nil {
			slog.ErrorContext(ctx, "Failed to remember current game", "room.id", gameID, "player.id", playerID, "error", err)
			span.RecordError(err)
		}
	}

	h.mu.Lock()
	r := h.createAndStartRoom(ctx, gameID, settings, state)
	h.mu.Unlock()

	slog.InfoContext(ctx, "Game created", "room.id", gameID, "player.id", playerID, "player.mark", mark, "bot.difficulty", difficulty)
	return r, nil
}

// GetRoom returns the live room of gameID, loading it from storage when this
// server does not hold it yet. Only the owner may access a game.
func (h *Hub) GetRoom(ctx context.Context, gameID, playerID string) (*room.Room, error) {
	ctx, span := tracer.Start(ctx, "hub.GetRoom", trace.WithAttributes(
		attribute.String("room.id", gameID),
		attribute.String("player.id", playerID),
	))
	defer span.End()

	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[gameID]; ok {
		if r.Settings.PlayerID != playerID {
			span.SetStatus(codes.Error, ErrForbidden.Error())
			return nil, ErrForbidden
		}
		r.Touch()
		return r, nil
	}

	r, err := h.rehydrateRoom(ctx, gameID, playerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load room")
		return nil, err
	}
	return r, nil
}

// CurrentGame returns the room of the latest game playerID created.
func (h *Hub) CurrentGame(ctx context.Context, playerID string) (*room.Room, error) {
	ctx, span := tracer.Start(ctx, "hub.CurrentGame", trace.WithAttributes(
		attribute.String("player.id", playerID),
	))
	defer span.End()

	if h.playerRepo == nil {
		return nil, repository.ErrGameNotFound
	}
	gameID, status, err := h.playerRepo.FindCurrentGame(ctx, playerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to find current game")
		return nil, err
	}
	span.SetAttributes(attribute.String("room.id", gameID), attribute.String("player.status", string(status)))
	return h.GetRoom(ctx, gameID, playerID)
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Close closes every live room.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*room.Room)
	h.mu.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}

// Register returns the register channel.
func (h *Hub) Register() chan<- *types.RegistrationRequest {
	return h.register
}

// Done is closed once Run has stopped accepting registrations.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Unregister returns the unregister channel.
func (h *Hub) Unregister() chan<- *types.UnregisterRequest {
	return h.unregister
}

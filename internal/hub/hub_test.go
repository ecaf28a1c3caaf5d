package hub

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/models"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/events"
	eventmocks "ctchen222/Tic-Tac-Toe-Minimax/internal/events/mocks"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/player"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository/mocks"
	"ctchen222/Tic-Tac-Toe-Minimax/pkg/proto"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type firstEmptyCalculator struct{}

func (firstEmptyCalculator) CalculateNextMove(_ context.Context, board game.Board, _ game.Difficulty, _, _ game.PlayerMark) int {
	empty := game.EmptyCells(board)
	if len(empty) == 0 {
		return -1
	}
	return empty[0]
}

type recordingResults struct {
	mu      sync.Mutex
	results []*models.GameResult
	err     error
}

func (r *recordingResults) Record(_ context.Context, result *models.GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return r.err
}

type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	incoming chan []byte
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 4)}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data != nil {
		c.written = append(c.written, data)
	}
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	msg, ok := <-c.incoming
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return 1, msg, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frames() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.written))
	for _, data := range c.written {
		var m map[string]any
		if err := json.Unmarshal(data, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type hubFixture struct {
	hub          *Hub
	gameRepo     *mocks.MockGameRepository
	settingsRepo *mocks.MockSettingsRepository
	publisher    *eventmocks.MockPublisher
	results      *recordingResults
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &hubFixture{
		gameRepo:     mocks.NewMockGameRepository(ctrl),
		settingsRepo: mocks.NewMockSettingsRepository(ctrl),
		publisher:    eventmocks.NewMockPublisher(ctrl),
		results:      &recordingResults{},
	}
	h, err := NewHub(Deps{
		GameRepo:     f.gameRepo,
		SettingsRepo: f.settingsRepo,
		Publisher:    f.publisher,
		Results:      f.results,
		Calculator:   firstEmptyCalculator{},
		AIMoveDelay:  time.Hour,
		IdleTimeout:  time.Hour,
	})
	require.NoError(t, err)
	f.hub = h
	t.Cleanup(h.Close)
	return f
}

func TestHub_CreateGame(t *testing.T) {
	f := newHubFixture(t)
	ctx := context.Background()

	var saved repository.SessionSettings
	f.settingsRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, s repository.SessionSettings) error {
			saved = s
			return nil
		})
	f.gameRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
		assert.Equal(t, events.TypeGameStarted, e.Type)
		return nil
	})

	r, err := f.hub.CreateGame(ctx, "p1", game.PlayerX, game.Medium)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, repository.SessionSettings{PlayerID: "p1", PlayerMark: game.PlayerX, Difficulty: game.Medium}, saved)
	assert.Equal(t, 1, f.hub.RoomCount())

	snapshot := r.Snapshot()
	assert.True(t, snapshot.Active)
	assert.Equal(t, game.PlayerX, snapshot.Next)
	assert.False(t, snapshot.Thinking)

	got, err := f.hub.GetRoom(ctx, r.ID, "p1")
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = f.hub.GetRoom(ctx, r.ID, "intruder")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestHub_CreateGame_OpponentOpensAsX(t *testing.T) {
	f := newHubFixture(t)
	f.settingsRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.gameRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	r, err := f.hub.CreateGame(context.Background(), "p1", game.PlayerO, game.Hard)
	require.NoError(t, err)
	assert.True(t, r.Snapshot().Thinking)
}

func TestHub_CreateGame_StorageFailure(t *testing.T) {
	f := newHubFixture(t)
	f.settingsRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	_, err := f.hub.CreateGame(context.Background(), "p1", game.PlayerX, game.Easy)
	assert.Error(t, err)
	assert.Zero(t, f.hub.RoomCount())
}

func TestHub_GetRoom_Rehydrates(t *testing.T) {
	ctx := context.Background()

	t.Run("Loads settings and board once", func(t *testing.T) {
		f := newHubFixture(t)
		state := &game.GameState{Board: game.Board{game.PlayerX, game.PlayerO}, Active: true}
		f.settingsRepo.EXPECT().Find(gomock.Any(), "g1").Return(&repository.SessionSettings{
			PlayerID: "p1", PlayerMark: game.PlayerX, Difficulty: game.Easy,
		}, nil)
		f.gameRepo.EXPECT().Load(gomock.Any(), "g1").Return(state, nil)

		r, err := f.hub.GetRoom(ctx, "g1", "p1")
		require.NoError(t, err)
		assert.Equal(t, []string{"X", "O", "", "", "", "", "", "", ""}, r.Snapshot().Board)

		again, err := f.hub.GetRoom(ctx, "g1", "p1")
		require.NoError(t, err)
		assert.Same(t, r, again)
	})

	t.Run("Unknown game", func(t *testing.T) {
		f := newHubFixture(t)
		f.settingsRepo.EXPECT().Find(gomock.Any(), "g1").Return(nil, repository.ErrGameNotFound)

		_, err := f.hub.GetRoom(ctx, "g1", "p1")
		assert.ErrorIs(t, err, repository.ErrGameNotFound)
		assert.Zero(t, f.hub.RoomCount())
	})

	t.Run("Another player's game", func(t *testing.T) {
		f := newHubFixture(t)
		f.settingsRepo.EXPECT().Find(gomock.Any(), "g1").Return(&repository.SessionSettings{PlayerID: "p2"}, nil)

		_, err := f.hub.GetRoom(ctx, "g1", "p1")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Missing board starts fresh", func(t *testing.T) {
		f := newHubFixture(t)
		f.settingsRepo.EXPECT().Find(gomock.Any(), "g1").Return(&repository.SessionSettings{
			PlayerID: "p1", PlayerMark: game.PlayerX, Difficulty: game.Easy,
		}, nil)
		f.gameRepo.EXPECT().Load(gomock.Any(), "g1").Return(nil, repository.ErrGameNotFound)

		r, err := f.hub.GetRoom(ctx, "g1", "p1")
		require.NoError(t, err)
		assert.True(t, r.Snapshot().Active)
	})

	t.Run("Opponent to move resumes thinking", func(t *testing.T) {
		f := newHubFixture(t)
		f.settingsRepo.EXPECT().Find(gomock.Any(), "g1").Return(&repository.SessionSettings{
			PlayerID: "p1", PlayerMark: game.PlayerX, Difficulty: game.Hard,
		}, nil)
		f.gameRepo.EXPECT().Load(gomock.Any(), "g1").Return(&game.GameState{Board: game.Board{game.PlayerX}, Active: true}, nil)

		r, err := f.hub.GetRoom(ctx, "g1", "p1")
		require.NoError(t, err)
		assert.True(t, r.Snapshot().Thinking)
	})
}

func TestHub_HandleEvent_RecordsFinishedGames(t *testing.T) {
	f := newHubFixture(t)
	ctx := context.Background()

	event, err := events.New(events.TypeGameFinished, events.GameFinishedPayload{
		ResultID:   "r1",
		GameID:     "g1",
		PlayerID:   "p1",
		PlayerMark: game.PlayerO,
		Difficulty: game.Hard,
		Winner:     game.PlayerX,
		Moves:      7,
	})
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	f.hub.handleEvent(ctx, string(raw))
	f.hub.handleEvent(ctx, `not json`)
	f.hub.handleEvent(ctx, `{"event":"game_finished","payload":"oops"}`)
	f.hub.handleEvent(ctx, `{"event":"game_reset","payload":{}}`)

	require.Len(t, f.results.results, 1)
	got := f.results.results[0]
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "g1", got.GameID)
	assert.Equal(t, "p1", got.PlayerID)
	assert.Equal(t, models.OutcomeLoss, got.Outcome)
	assert.Equal(t, "X", got.Winner)
	assert.Equal(t, 7, got.Moves)
}

func TestHub_Run_RegistersConnections(t *testing.T) {
	f := newHubFixture(t)
	f.settingsRepo.EXPECT().Find(gomock.Any(), "g1").Return(&repository.SessionSettings{
		PlayerID: "p1", PlayerMark: game.PlayerX, Difficulty: game.Easy,
	}, nil)
	f.gameRepo.EXPECT().Load(gomock.Any(), "g1").Return(game.NewGameState(), nil)
	f.gameRepo.EXPECT().Save(gomock.Any(), "g1", gomock.Any()).Return(nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn := newFakeConn()
	f.hub.Register() <- &types.RegistrationRequest{Player: player.NewPlayer("p1", conn), GameID: "g1", Ctx: ctx}

	require.Eventually(t, func() bool { return len(conn.frames()) >= 2 }, time.Second, 5*time.Millisecond)
	frames := conn.frames()
	assert.Equal(t, proto.TypeAssignment, frames[0]["type"])
	assert.Equal(t, "X", frames[0]["mark"])
	assert.Equal(t, proto.TypeUpdate, frames[1]["type"])

	conn.incoming <- []byte(`{"type":"move","index":4}`)
	require.Eventually(t, func() bool { return len(conn.frames()) >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "X", conn.frames()[2]["board"].([]any)[4])

	intruder := newFakeConn()
	f.hub.Register() <- &types.RegistrationRequest{Player: player.NewPlayer("p2", intruder), GameID: "g1"}
	require.Eventually(t, intruder.isClosed, time.Second, 5*time.Millisecond)
	require.Len(t, intruder.frames(), 1)
	assert.Equal(t, proto.TypeError, intruder.frames()[0]["type"])
}

func TestHub_EvictIdleRooms(t *testing.T) {
	f := newHubFixture(t)
	f.hub.idleTimeout = 0
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("g%d", i)
		f.settingsRepo.EXPECT().Find(gomock.Any(), id).Return(&repository.SessionSettings{
			PlayerID: "p1", PlayerMark: game.PlayerX, Difficulty: game.Easy,
		}, nil)
		f.gameRepo.EXPECT().Load(gomock.Any(), id).Return(game.NewGameState(), nil)
		_, err := f.hub.GetRoom(context.Background(), id, "p1")
		require.NoError(t, err)
	}

	busy, err := f.hub.GetRoom(context.Background(), "g0", "p1")
	require.NoError(t, err)
	busy.AddPlayer(player.NewPlayer("p1", newFakeConn()))

	assert.Equal(t, 2, f.hub.evictIdleRooms())
	assert.Equal(t, 1, f.hub.RoomCount())
}

func TestHub_GetRoom_KeepsRoomFromEviction(t *testing.T) {
	f := newHubFixture(t)
	f.hub.idleTimeout = 30 * time.Millisecond
	f.settingsRepo.EXPECT().Find(gomock.Any(), "g1").Return(&repository.SessionSettings{
		PlayerID: "p1", PlayerMark: game.PlayerX, Difficulty: game.Easy,
	}, nil)
	f.gameRepo.EXPECT().Load(gomock.Any(), "g1").Return(game.NewGameState(), nil)
	f.gameRepo.EXPECT().Save(gomock.Any(), "g1", gomock.Any()).Return(nil)

	r, err := f.hub.GetRoom(context.Background(), "g1", "p1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.Idle(f.hub.idleTimeout) }, time.Second, 5*time.Millisecond)

	// A room looked up right before the janitor runs stays usable.
	got, err := f.hub.GetRoom(context.Background(), "g1", "p1")
	require.NoError(t, err)
	assert.Zero(t, f.hub.evictIdleRooms())
	assert.Equal(t, 1, f.hub.RoomCount())

	_, err = got.HandleMove(context.Background(), 4)
	assert.NoError(t, err)
}

func TestHub_CurrentGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Without a player repository", func(t *testing.T) {
		f := newHubFixture(t)
		_, err := f.hub.CurrentGame(ctx, "p1")
		assert.ErrorIs(t, err, repository.ErrGameNotFound)
	})

	t.Run("Latest created game", func(t *testing.T) {
		f := newHubFixture(t)
		players := mocks.NewMockPlayerRepository(gomock.NewController(t))
		f.hub.playerRepo = players

		players.EXPECT().FindCurrentGame(gomock.Any(), "p1").Return("", repository.StatusDisconnected, repository.ErrGameNotFound)
		_, err := f.hub.CurrentGame(ctx, "p1")
		assert.ErrorIs(t, err, repository.ErrGameNotFound)

		f.settingsRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		f.gameRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
		var current string
		players.EXPECT().SetCurrentGame(gomock.Any(), "p1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _, gameID string) error {
				current = gameID
				return nil
			})

		r, err := f.hub.CreateGame(ctx, "p1", game.PlayerX, game.Easy)
		require.NoError(t, err)
		assert.Equal(t, r.ID, current)

		players.EXPECT().FindCurrentGame(gomock.Any(), "p1").Return(r.ID, repository.StatusDisconnected, nil)
		got, err := f.hub.CurrentGame(ctx, "p1")
		require.NoError(t, err)
		assert.Same(t, r, got)
	})
}

func TestHub_Run_TracksConnectionStatus(t *testing.T) {
	f := newHubFixture(t)
	players := mocks.NewMockPlayerRepository(gomock.NewController(t))
	f.hub.playerRepo = players

	f.settingsRepo.EXPECT().Find(gomock.Any(), "g1").Return(&repository.SessionSettings{
		PlayerID: "p1", PlayerMark: game.PlayerX, Difficulty: game.Easy,
	}, nil)
	f.gameRepo.EXPECT().Load(gomock.Any(), "g1").Return(game.NewGameState(), nil)

	connected := make(chan struct{})
	disconnected := make(chan struct{})
	gomock.InOrder(
		players.EXPECT().UpdateConnectionStatus(gomock.Any(), "p1", repository.StatusConnected).DoAndReturn(
			func(context.Context, string, repository.ConnectionStatus) error {
				close(connected)
				return nil
			}),
		players.EXPECT().UpdateConnectionStatus(gomock.Any(), "p1", repository.StatusDisconnected).DoAndReturn(
			func(context.Context, string, repository.ConnectionStatus) error {
				close(disconnected)
				return nil
			}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn := newFakeConn()
	f.hub.Register() <- &types.RegistrationRequest{Player: player.NewPlayer("p1", conn), GameID: "g1", Ctx: ctx}
	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("connection status was not updated")
	}

	close(conn.incoming)
	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("disconnection was not recorded")
	}
}

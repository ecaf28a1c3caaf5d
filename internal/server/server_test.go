package server

import (
	"bytes"
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/controller"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/models"
	apirepository "ctchen222/Tic-Tac-Toe-Minimax/internal/api/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/service"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/db"
	eventmocks "ctchen222/Tic-Tac-Toe-Minimax/internal/events/mocks"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository/mocks"
	"ctchen222/Tic-Tac-Toe-Minimax/pkg/proto"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Extras  json.RawMessage `json:"extras"`
}

type firstEmptyCalculator struct{}

func (firstEmptyCalculator) CalculateNextMove(_ context.Context, board game.Board, _ game.Difficulty, _, _ game.PlayerMark) int {
	empty := game.EmptyCells(board)
	if len(empty) == 0 {
		return -1
	}
	return empty[0]
}

type memoryPlayers struct {
	mu    sync.Mutex
	games map[string]string
}

func newMemoryPlayers() *memoryPlayers {
	return &memoryPlayers{games: make(map[string]string)}
}

func (m *memoryPlayers) SetCurrentGame(_ context.Context, playerID, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[playerID] = gameID
	return nil
}

func (m *memoryPlayers) FindCurrentGame(_ context.Context, playerID string) (string, repository.ConnectionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gameID, ok := m.games[playerID]
	if !ok {
		return "", "", repository.ErrGameNotFound
	}
	return gameID, repository.StatusDisconnected, nil
}

func (m *memoryPlayers) UpdateConnectionStatus(context.Context, string, repository.ConnectionStatus) error {
	return nil
}

type testServer struct {
	server  *Server
	hub     *hub.Hub
	results apirepository.ResultRepository
	stopHub func()
}

func newTestServer(t *testing.T, aiMoveDelay time.Duration) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	DB, err := db.ConnectAndInitialize(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { DB.Close() })

	ctrl := gomock.NewController(t)
	gameRepo := mocks.NewMockGameRepository(ctrl)
	settingsRepo := mocks.NewMockSettingsRepository(ctrl)
	playerRepo := newMemoryPlayers()
	publisher := eventmocks.NewMockPublisher(ctrl)
	gameRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	gameRepo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	settingsRepo.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	settingsRepo.EXPECT().Find(gomock.Any(), gomock.Any()).Return(nil, repository.ErrGameNotFound).AnyTimes()
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	results := apirepository.NewResultRepository(DB)
	h, err := hub.NewHub(hub.Deps{
		GameRepo:     gameRepo,
		SettingsRepo: settingsRepo,
		PlayerRepo:   playerRepo,
		Publisher:    publisher,
		Results:      results,
		Calculator:   firstEmptyCalculator{},
		AIMoveDelay:  aiMoveDelay,
		IdleTimeout:  time.Hour,
	})
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		h.Run(runCtx)
		close(done)
	}()
	var stopOnce sync.Once
	stopHub := func() {
		stopOnce.Do(func() {
			cancel()
			<-done
		})
	}
	t.Cleanup(stopHub)

	userService := service.NewUserService(apirepository.NewUserRepository(DB), "test-secret")
	srv := NewServer(h,
		controller.NewUserController(userService),
		controller.NewGameController(h, results),
		userService,
	)
	return &testServer{server: srv, hub: h, results: results, stopHub: stopHub}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (ts *testServer) guest(t *testing.T) models.GuestLoginResponse {
	t.Helper()
	code, env := ts.do(t, http.MethodPost, "/api/users/guest", "", nil)
	require.Equal(t, http.StatusOK, code)
	var guest models.GuestLoginResponse
	require.NoError(t, json.Unmarshal(env.Extras, &guest))
	require.NotEmpty(t, guest.Token)
	return guest
}

func snapshotOf(t *testing.T, env envelope) proto.ServerToClientMessage {
	t.Helper()
	var msg proto.ServerToClientMessage
	require.NoError(t, json.Unmarshal(env.Extras, &msg))
	return msg
}

func TestServer_GameFlow(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	guest := ts.guest(t)

	code, env := ts.do(t, http.MethodPost, "/api/games", guest.Token, gin.H{"symbol": "X", "difficulty": "hard"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	created := snapshotOf(t, env)
	require.NotEmpty(t, created.GameID)
	assert.Equal(t, game.PlayerX, created.PlayerMark)
	assert.Equal(t, game.PlayerO, created.BotMark)
	assert.Equal(t, game.Hard, created.Difficulty)

	gamePath := "/api/games/" + created.GameID

	code, env = ts.do(t, http.MethodPost, gamePath+"/moves", guest.Token, gin.H{"index": 4})
	require.Equal(t, http.StatusOK, code)
	moved := snapshotOf(t, env)
	assert.Equal(t, "X", moved.Board[4])
	assert.True(t, moved.Thinking)

	code, env = ts.do(t, http.MethodPost, gamePath+"/moves", guest.Token, gin.H{"index": 4})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, _ = ts.do(t, http.MethodPost, gamePath+"/moves", guest.Token, gin.H{"index": 12})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodGet, gamePath, guest.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "X", snapshotOf(t, env).Board[4])

	code, env = ts.do(t, http.MethodPost, gamePath+"/reset", guest.Token, nil)
	require.Equal(t, http.StatusOK, code)
	reset := snapshotOf(t, env)
	assert.Equal(t, make([]string, game.CellCount), reset.Board)
	assert.False(t, reset.Thinking)

	other := ts.guest(t)
	code, _ = ts.do(t, http.MethodGet, gamePath, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(t, http.MethodGet, "/api/games/does-not-exist", guest.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = ts.do(t, http.MethodGet, "/api/games", guest.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.GameID, snapshotOf(t, env).GameID)
	code, _ = ts.do(t, http.MethodGet, "/api/games", other.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_CreateGameDefaultsAndValidation(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	guest := ts.guest(t)

	code, env := ts.do(t, http.MethodPost, "/api/games", guest.Token, nil)
	require.Equal(t, http.StatusOK, code)
	created := snapshotOf(t, env)
	assert.Equal(t, game.PlayerX, created.PlayerMark)
	assert.Equal(t, game.Easy, created.Difficulty)

	code, _ = ts.do(t, http.MethodPost, "/api/games", guest.Token, gin.H{"symbol": "Q"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.do(t, http.MethodPost, "/api/games", guest.Token, gin.H{"difficulty": "nightmare"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodPost, "/api/games", guest.Token, gin.H{"symbol": "o"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, snapshotOf(t, env).Thinking, "the opponent opens when it plays X")
}

func TestServer_AuthRequired(t *testing.T) {
	ts := newTestServer(t, time.Hour)

	for _, path := range []string{"/api/games/x", "/api/stats"} {
		code, env := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.False(t, env.Success)
	}
	code, _ := ts.do(t, http.MethodGet, "/api/stats", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestServer_UsersAndStats(t *testing.T) {
	ts := newTestServer(t, time.Hour)

	creds := gin.H{"username": "alice", "password": "secret1"}
	code, _ := ts.do(t, http.MethodPost, "/api/users/register", "", creds)
	require.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodPost, "/api/users/register", "", creds)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = ts.do(t, http.MethodPost, "/api/users/register", "", gin.H{"username": "al"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodPost, "/api/users/login", "", gin.H{"username": "alice", "password": "nope00"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, env := ts.do(t, http.MethodPost, "/api/users/login", "", creds)
	require.Equal(t, http.StatusOK, code)
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Extras, &login))

	require.NoError(t, ts.results.Record(context.Background(), &models.GameResult{
		ID: "r1", GameID: "g1", PlayerID: "user-1", PlayerMark: "X", Difficulty: "easy", Winner: "X", Outcome: models.OutcomeWin, Moves: 5,
	}))

	code, env = ts.do(t, http.MethodGet, "/api/stats", login.Token, nil)
	require.Equal(t, http.StatusOK, code)
	var stats models.PlayerStats
	require.NoError(t, json.Unmarshal(env.Extras, &stats))
	assert.Equal(t, "user-1", stats.PlayerID)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Total)
}

func TestServer_WebSocket(t *testing.T) {
	ts := newTestServer(t, 10*time.Millisecond)
	guest := ts.guest(t)

	code, env := ts.do(t, http.MethodPost, "/api/games", guest.Token, gin.H{"symbol": "X", "difficulty": "easy"})
	require.Equal(t, http.StatusOK, code)
	gameID := snapshotOf(t, env).GameID

	httpServer := httptest.NewServer(ts.server.Engine())
	t.Cleanup(httpServer.Close)
	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws?gameId=" + gameID + "&token=" + guest.Token

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(httpServer.URL, "http")+"/ws?gameId="+gameID, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var assignment proto.PlayerAssignmentMessage
	require.NoError(t, conn.ReadJSON(&assignment))
	assert.Equal(t, proto.TypeAssignment, assignment.Type)
	assert.Equal(t, game.PlayerX, assignment.Mark)

	readUpdate := func() proto.ServerToClientMessage {
		t.Helper()
		var update proto.ServerToClientMessage
		require.NoError(t, conn.ReadJSON(&update))
		require.Equal(t, proto.TypeUpdate, update.Type)
		return update
	}
	readUpdate()

	index := 4
	require.NoError(t, conn.WriteJSON(proto.ClientToServerMessage{Type: proto.TypeMove, Index: &index}))

	moved := readUpdate()
	assert.Equal(t, "X", moved.Board[4])
	assert.True(t, moved.Thinking)

	// The opponent's reply is pushed without another request.
	replied := readUpdate()
	assert.Equal(t, "O", replied.Board[0])
	assert.False(t, replied.Thinking)
	assert.Equal(t, game.PlayerX, replied.Next)
	require.NotNil(t, replied.LastMove)
	assert.Equal(t, 0, *replied.LastMove)
}

func TestServer_WebSocketAfterHubStopped(t *testing.T) {
	ts := newTestServer(t, time.Hour)
	guest := ts.guest(t)

	httpServer := httptest.NewServer(ts.server.Engine())
	t.Cleanup(httpServer.Close)

	ts.stopHub()
	// Stopping the hub closed every room; this one passes the ownership check
	// but can no longer be registered.
	r, err := ts.hub.CreateGame(context.Background(), guest.PlayerID, game.PlayerX, game.Easy)
	require.NoError(t, err)
	t.Cleanup(r.Close)

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws?gameId=" + r.ID + "&token=" + guest.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "the server should close the connection instead of hanging")
	}
}

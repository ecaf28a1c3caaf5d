package controller

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/middleware"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/models"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/response"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/room"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GameHub creates and looks up game rooms.
type GameHub interface {
	CreateGame(ctx context.Context, playerID string, mark game.PlayerMark, difficulty game.Difficulty) (*room.Room, error)
	GetRoom(ctx context.Context, gameID, playerID string) (*room.Room, error)
	CurrentGame(ctx context.Context, playerID string) (*room.Room, error)
}

// StatsReader reads aggregated results.
type StatsReader interface {
	Stats(ctx context.Context, playerID string) (*models.PlayerStats, error)
}

// GameController handles game HTTP requests.
type GameController struct {
	hub     GameHub
	results StatsReader
}

// NewGameController creates a new GameController.
func NewGameController(hub GameHub, results StatsReader) *GameController {
	return &GameController{hub: hub, results: results}
}

// CreateGame starts a game with the chosen symbol and difficulty.
func (gc *GameController) CreateGame(c *gin.Context) {
	var req models.CreateGameRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	mark, err := game.ParseMark(req.Symbol)
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	difficulty, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	r, err := gc.hub.CreateGame(c.Request.Context(), middleware.PlayerID(c), mark, difficulty)
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, r.Snapshot())
}

// GetGame returns the current snapshot of a game.
func (gc *GameController) GetGame(c *gin.Context) {
	r, err := gc.hub.GetRoom(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, r.Snapshot())
}

// CurrentGame returns the latest game of the caller so a client can resume it.
func (gc *GameController) CurrentGame(c *gin.Context) {
	r, err := gc.hub.CurrentGame(c.Request.Context(), middleware.PlayerID(c))
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, r.Snapshot())
}

// Move places the caller's mark. The opponent's reply arrives later over the websocket
// or on the next GetGame.
func (gc *GameController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	r, err := gc.hub.GetRoom(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		gc.fail(c, err)
		return
	}
	snapshot, err := r.HandleMove(c.Request.Context(), *req.Index)
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, snapshot)
}

// Reset starts the game over.
func (gc *GameController) Reset(c *gin.Context) {
	r, err := gc.hub.GetRoom(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		gc.fail(c, err)
		return
	}
	snapshot, err := r.Reset(c.Request.Context())
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, snapshot)
}

// Stats returns the caller's win, loss and draw counts.
func (gc *GameController) Stats(c *gin.Context) {
	stats, err := gc.results.Stats(c.Request.Context(), middleware.PlayerID(c))
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, stats)
}

func (gc *GameController) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "Game request failed", "player.id", middleware.PlayerID(c), "error", err)
		response.ErrorResponse(c, status, "internal error")
		return
	}
	response.ErrorResponse(c, status, err.Error())
}

// StatusFor maps game errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, hub.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrInvalidCell),
		errors.Is(err, game.ErrInvalidMark),
		errors.Is(err, game.ErrInvalidDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrCellOccupied),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrGameFinished),
		errors.Is(err, room.ErrRoomClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

package server

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/controller"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/middleware"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/response"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub/types"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/player"
	appvalidator "ctchen222/Tic-Tac-Toe-Minimax/internal/validator"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

type Server struct {
	hub            *hub.Hub
	engine         *gin.Engine
	upgrader       websocket.Upgrader
	userController *controller.UserController
	gameController *controller.GameController
	tokens         middleware.TokenParser
}

func NewServer(h *hub.Hub, userController *controller.UserController, gameController *controller.GameController, tokens middleware.TokenParser) *Server {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := appvalidator.Register(v); err != nil {
			slog.Error("Failed to register binding validators", "error", err)
		}
	}

	s := &Server{
		hub:            h,
		userController: userController,
		gameController: gameController,
		tokens:         tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine = s.routes()
	return s
}

// Engine returns the HTTP handler.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponseContent(c, "ok")
	})

	api := engine.Group("/api")
	users := api.Group("/users")
	{
		users.POST("/register", s.userController.Register)
		users.POST("/login", s.userController.Login)
		users.POST("/guest", s.userController.GuestLogin)
	}

	authed := api.Group("", middleware.AuthRequired(s.tokens))
	{
		authed.POST("/games", s.gameController.CreateGame)
		authed.GET("/games", s.gameController.CurrentGame)
		authed.GET("/games/:id", s.gameController.GetGame)
		authed.POST("/games/:id/moves", s.gameController.Move)
		authed.POST("/games/:id/reset", s.gameController.Reset)
		authed.GET("/stats", s.gameController.Stats)
	}

	engine.GET("/ws", middleware.WebSocketAuth(s.tokens), s.handleWebSocket)
	return engine
}

// handleWebSocket checks that the caller owns the game, upgrades the
// connection and hands it to the hub.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.method", c.Request.Method),
	))
	defer span.End()

	playerID := middleware.PlayerID(c)
	gameID := c.Query("gameId")
	span.SetAttributes(attribute.String("player.id", playerID), attribute.String("room.id", gameID))

	if gameID == "" {
		response.ErrorResponse(c, http.StatusBadRequest, "gameId is required")
		return
	}
	if _, err := s.hub.GetRoom(ctx, gameID, playerID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Game lookup failed")
		response.ErrorResponse(c, controller.StatusFor(err), err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "player.id", playerID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	req := &types.RegistrationRequest{
		Player: player.NewPlayer(playerID, conn),
		GameID: gameID,
		Ctx:    context.WithoutCancel(ctx),
	}
	select {
	case s.hub.Register() <- req:
	case <-s.hub.Done():
		slog.WarnContext(ctx, "Hub stopped, dropping connection", "player.id", playerID, "room.id", gameID)
		span.SetStatus(codes.Error, "Hub stopped")
		conn.Close()
	case <-c.Request.Context().Done():
		conn.Close()
	}
}

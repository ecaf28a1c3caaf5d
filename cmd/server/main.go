package main

import (
	"context"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/controller"
	apirepository "ctchen222/Tic-Tac-Toe-Minimax/internal/api/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/service"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/bot"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/config"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/db"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/events"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/hub"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/logger"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/repository"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/server"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/telemetry"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Otel)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()
	logger.Init(cfg.LogLevel)

	// Initialize Redis
	rdb, err := db.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	// Initialize SQLite DB
	DB, err := db.ConnectAndInitialize(ctx, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to initialize sqlite db: %v", err)
	}
	defer DB.Close()

	// Create repositories
	gameRepo := repository.NewGameRepository(rdb, cfg.SessionTTL)
	settingsRepo := repository.NewSettingsRepository(rdb, cfg.SessionTTL)
	playerRepo := repository.NewPlayerRepository(rdb, cfg.SessionTTL)
	userRepo := apirepository.NewUserRepository(DB)
	resultRepo := apirepository.NewResultRepository(DB)

	// Create services
	userService := service.NewUserService(userRepo, cfg.JWTSecret)
	calculator, err := bot.NewSeededBotMoveCalculator(uint64(time.Now().UnixNano()))
	if err != nil {
		log.Fatalf("failed to create move calculator: %v", err)
	}

	// Create hub
	h, err := hub.NewHub(hub.Deps{
		RDB:          rdb,
		GameRepo:     gameRepo,
		SettingsRepo: settingsRepo,
		PlayerRepo:   playerRepo,
		Publisher:    events.NewRedisPublisher(rdb),
		Results:      resultRepo,
		Calculator:   calculator,
		AIMoveDelay:  cfg.AIMoveDelay,
		IdleTimeout:  cfg.RoomIdleTimeout,
	})
	if err != nil {
		log.Fatalf("failed to create hub: %v", err)
	}
	hubDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(hubDone)
	}()

	// Create controllers
	userController := controller.NewUserController(userService)
	gameController := controller.NewGameController(h, resultRepo)

	// Create the Gin-based server
	srv := server.NewServer(h, userController, gameController, userService)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("HTTP server started", "http.addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	<-hubDone

	slog.Info("Server exiting")
}

package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

const driverName = "sqlite"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS game_results (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		player_mark TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		moves INTEGER NOT NULL,
		finished_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_game_results_player ON game_results(player_id);`,
}

// Connect opens the SQLite database at dbPath. Use ":memory:" for a throwaway database.
func Connect(dbPath string) (*sqlx.DB, error) {
	pool, err := sqlx.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		pool.SetMaxOpenConns(1)
	}
	return pool, nil
}

// InitializeDB enables foreign keys and creates the tables if they don't exist.
func InitializeDB(ctx context.Context, DB *sqlx.DB) error {
	if _, err := DB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	for _, stmt := range schema {
		if _, err := DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	slog.InfoContext(ctx, "DB connection initialized and schema verified.")
	return nil
}

// ConnectAndInitialize is Connect followed by InitializeDB.
func ConnectAndInitialize(ctx context.Context, dbPath string) (*sqlx.DB, error) {
	DB, err := Connect(dbPath)
	if err != nil {
		return nil, err
	}
	if err := InitializeDB(ctx, DB); err != nil {
		DB.Close()
		return nil, err
	}
	return DB, nil
}

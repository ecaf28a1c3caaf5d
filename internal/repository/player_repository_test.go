package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRepository(t *testing.T) {
	rdb := newTestRedis(t)
	repo := NewPlayerRepository(rdb, time.Hour)
	ctx := context.Background()

	t.Run("Player without a game", func(t *testing.T) {
		_, _, err := repo.FindCurrentGame(ctx, "nobody")
		assert.ErrorIs(t, err, ErrGameNotFound)
		assert.ErrorIs(t, repo.UpdateConnectionStatus(ctx, "nobody", StatusConnected), ErrGameNotFound)
	})

	t.Run("Current game and status", func(t *testing.T) {
		require.NoError(t, repo.SetCurrentGame(ctx, "p1", "g1"))

		gameID, status, err := repo.FindCurrentGame(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "g1", gameID)
		assert.Equal(t, StatusDisconnected, status)

		require.NoError(t, repo.UpdateConnectionStatus(ctx, "p1", StatusConnected))
		_, status, err = repo.FindCurrentGame(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, StatusConnected, status)

		ttl, err := rdb.TTL(ctx, "player:p1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("A new game replaces the old one", func(t *testing.T) {
		require.NoError(t, repo.SetCurrentGame(ctx, "p2", "g1"))
		require.NoError(t, repo.UpdateConnectionStatus(ctx, "p2", StatusConnected))
		require.NoError(t, repo.SetCurrentGame(ctx, "p2", "g2"))

		gameID, status, err := repo.FindCurrentGame(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, "g2", gameID)
		assert.Equal(t, StatusDisconnected, status)
	})
}

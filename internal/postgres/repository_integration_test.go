//go:build integration

package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gwent"),
		tcpostgres.WithUsername("gwent"),
		tcpostgres.WithPassword("gwent"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := NewRepository(ctx, &config.PostgresConfig{
		URL:            connStr,
		QueryTimeout:   5 * time.Second,
		MaxConnections: 4,
		MinConnections: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	require.NoError(t, repo.RunMigrations(ctx))
	return repo
}

func TestRepository_Integration(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	t.Run("upsert replaces every column", func(t *testing.T) {
		first, err := repo.UpsertPlayer(ctx, domain.PlayerRecord{
			ID: "p1", Game: domain.EditionGOT, Username: "alice", Wins: 5, WinPercentage: 62.5, Faction3CardsUnlocked: 7,
		})
		require.NoError(t, err)
		assert.False(t, first.UpdatedAt.IsZero())
		assert.Equal(t, 62.5, first.WinPercentage)

		second, err := repo.UpsertPlayer(ctx, domain.PlayerRecord{ID: "p1", Game: domain.EditionGOT, Username: "alice"})
		require.NoError(t, err)
		assert.Zero(t, second.Wins)
		assert.Zero(t, second.Faction3CardsUnlocked)
		assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
	})

	t.Run("insert rejects duplicate ids", func(t *testing.T) {
		_, err := repo.InsertPlayer(ctx, domain.PlayerRecord{ID: "p2", Game: domain.EditionGOT, Username: "bob"})
		require.NoError(t, err)
		_, err = repo.InsertPlayer(ctx, domain.PlayerRecord{ID: "p2", Game: domain.EditionGOT, Username: "bob"})
		assert.ErrorIs(t, err, domain.ErrPlayerExists)
	})

	t.Run("update and delete unknown ids", func(t *testing.T) {
		_, err := repo.UpdatePlayer(ctx, domain.PlayerRecord{ID: "ghost", Game: domain.EditionGOT, Username: "x"})
		assert.True(t, domain.IsNotFoundError(err))
		_, err = repo.DeletePlayer(ctx, "ghost")
		assert.True(t, domain.IsNotFoundError(err))
	})

	t.Run("query orders with byte-wise username ties", func(t *testing.T) {
		for _, p := range []domain.PlayerRecord{
			{ID: "l1", Game: domain.EditionLOTR, Username: "frodo", Wins: 3},
			{ID: "l2", Game: domain.EditionLOTR, Username: "Sam", Wins: 3},
			{ID: "l3", Game: domain.EditionLOTR, Username: "aragorn", Wins: 9},
		} {
			_, err := repo.UpsertPlayer(ctx, p)
			require.NoError(t, err)
		}

		players, err := repo.QueryPlayers(ctx, domain.PlayerQuery{
			Game:     domain.EditionLOTR,
			Ordering: domain.WinPercentageOrdering.Total(),
		})
		require.NoError(t, err)
		require.Len(t, players, 3)
		assert.Equal(t, []string{"aragorn", "Sam", "frodo"}, []string{players[0].Username, players[1].Username, players[2].Username})

		future, err := repo.QueryPlayers(ctx, domain.PlayerQuery{
			Game:     domain.EditionLOTR,
			Since:    time.Now().Add(time.Hour),
			Ordering: domain.WinPercentageOrdering.Total(),
		})
		require.NoError(t, err)
		assert.Empty(t, future)
	})

	t.Run("delete returns the row", func(t *testing.T) {
		deleted, err := repo.DeletePlayer(ctx, "l3")
		require.NoError(t, err)
		assert.Equal(t, "aragorn", deleted.Username)
		assert.Equal(t, domain.EditionLOTR, deleted.Game)
	})

	t.Run("cancelled context is unavailable", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.QueryPlayers(cctx, domain.PlayerQuery{Game: domain.EditionGOT})
		assert.True(t, domain.IsStoreUnavailable(err))
	})

	require.NoError(t, repo.Ping(ctx))
}

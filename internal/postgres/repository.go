package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for a duplicate primary key
const uniqueViolation = "23505"

// Repository provides PostgreSQL-based player storage
type Repository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(ctx context.Context, cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:    pool,
		timeout: cfg.QueryTimeout,
		logger:  logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.pool.Ping(ctx); err != nil {
		return r.classify("pinging database", err)
	}
	return nil
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS gwent_leaderboard (
			id TEXT PRIMARY KEY,
			game VARCHAR(32) NOT NULL,
			username VARCHAR(255) NOT NULL,
			wins BIGINT NOT NULL DEFAULT 0,
			draws BIGINT NOT NULL DEFAULT 0,
			losses BIGINT NOT NULL DEFAULT 0,
			win_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
			highest_scored_round BIGINT NOT NULL DEFAULT 0,
			challenges_completed BIGINT NOT NULL DEFAULT 0,
			total_cards_unlocked BIGINT NOT NULL DEFAULT 0,
			neutral_cards_unlocked BIGINT NOT NULL DEFAULT 0,
			special_cards_unlocked BIGINT NOT NULL DEFAULT 0,
			faction1_cards_unlocked BIGINT NOT NULL DEFAULT 0,
			faction2_cards_unlocked BIGINT NOT NULL DEFAULT 0,
			faction3_cards_unlocked BIGINT NOT NULL DEFAULT 0,
			faction4_cards_unlocked BIGINT NOT NULL DEFAULT 0,
			faction5_cards_unlocked BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gwent_leaderboard_game_updated ON gwent_leaderboard(game, updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_gwent_leaderboard_game_wins ON gwent_leaderboard(game, wins DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// QueryPlayers returns the players of one edition in ranking order
func (r *Repository) QueryPlayers(ctx context.Context, q domain.PlayerQuery) ([]domain.PlayerRecord, error) {
	query, args, err := buildRankQuery(q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, r.classify("querying players", err)
	}
	defer rows.Close()

	players := make([]domain.PlayerRecord, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.classify("reading players", err)
	}
	return players, nil
}

// UpsertPlayer inserts the record or replaces every column of the row with
// the same id
func (r *Repository) UpsertPlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error) {
	query := `
		INSERT INTO gwent_leaderboard (` + insertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		ON CONFLICT (id) DO UPDATE SET
			game = EXCLUDED.game,
			username = EXCLUDED.username,
			wins = EXCLUDED.wins,
			draws = EXCLUDED.draws,
			losses = EXCLUDED.losses,
			win_percentage = EXCLUDED.win_percentage,
			highest_scored_round = EXCLUDED.highest_scored_round,
			challenges_completed = EXCLUDED.challenges_completed,
			total_cards_unlocked = EXCLUDED.total_cards_unlocked,
			neutral_cards_unlocked = EXCLUDED.neutral_cards_unlocked,
			special_cards_unlocked = EXCLUDED.special_cards_unlocked,
			faction1_cards_unlocked = EXCLUDED.faction1_cards_unlocked,
			faction2_cards_unlocked = EXCLUDED.faction2_cards_unlocked,
			faction3_cards_unlocked = EXCLUDED.faction3_cards_unlocked,
			faction4_cards_unlocked = EXCLUDED.faction4_cards_unlocked,
			faction5_cards_unlocked = EXCLUDED.faction5_cards_unlocked,
			updated_at = now()
		RETURNING ` + selectColumns

	return r.writeOne(ctx, "upserting player", query, recordArgs(p)...)
}

// InsertPlayer inserts a new row; a duplicate id fails with ErrPlayerExists
func (r *Repository) InsertPlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error) {
	query := `
		INSERT INTO gwent_leaderboard (` + insertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		RETURNING ` + selectColumns

	return r.writeOne(ctx, "inserting player", query, recordArgs(p)...)
}

// UpdatePlayer replaces every column of an existing row
func (r *Repository) UpdatePlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error) {
	query := `
		UPDATE gwent_leaderboard SET
			game = $2,
			username = $3,
			wins = $4,
			draws = $5,
			losses = $6,
			win_percentage = $7,
			highest_scored_round = $8,
			challenges_completed = $9,
			total_cards_unlocked = $10,
			neutral_cards_unlocked = $11,
			special_cards_unlocked = $12,
			faction1_cards_unlocked = $13,
			faction2_cards_unlocked = $14,
			faction3_cards_unlocked = $15,
			faction4_cards_unlocked = $16,
			faction5_cards_unlocked = $17,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + selectColumns

	updated, err := r.writeOne(ctx, "updating player", query, recordArgs(p)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlayerRecord{}, &domain.NotFoundError{ID: p.ID}
	}
	return updated, err
}

// DeletePlayer removes a row and returns it
func (r *Repository) DeletePlayer(ctx context.Context, id string) (domain.PlayerRecord, error) {
	query := `DELETE FROM gwent_leaderboard WHERE id = $1 RETURNING ` + selectColumns

	deleted, err := r.writeOne(ctx, "deleting player", query, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlayerRecord{}, &domain.NotFoundError{ID: id}
	}
	return deleted, err
}

// writeOne runs a statement returning a single player row. pgx.ErrNoRows is
// passed through unwrapped for the caller to map.
func (r *Repository) writeOne(ctx context.Context, op, query string, args ...any) (domain.PlayerRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PlayerRecord{}, err
		}
		return domain.PlayerRecord{}, r.classify(op, err)
	}
	return p, nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// classify maps driver errors onto domain errors. Anything that is not a
// server-side SQL error means the database could not be reached in time.
func (r *Repository) classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", op, domain.ErrPlayerExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	r.logger.Error("player store unavailable", "op", op, "error", err)
	return domain.StoreUnavailable(op, err)
}

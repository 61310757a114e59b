package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrStatsNotFound = errors.New("user stats not found")

type StatsRepo struct {
	pool *pgxpool.Pool
}

type StatsRecord struct {
	TelegramID     int64
	TotalGames     int
	GamesWon       int
	GamesLost      int
	TotalWagered   float64
	TotalWon       float64
	BestMultiplier float64
	UpdatedAt      time.Time
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) FindByTelegramID(ctx context.Context, telegramID int64) (StatsRecord, error) {
	if r.pool == nil {
		return StatsRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return StatsRecord{}, fmt.Errorf("invalid telegram id")
	}

	var record StatsRecord
	err := r.pool.QueryRow(ctx, `
SELECT u.telegram_id, s.total_games, s.games_won, s.games_lost,
	s.total_wagered, s.total_won, s.best_multiplier, s.updated_at
FROM user_stats s
JOIN users u ON u.id = s.user_id
WHERE u.telegram_id = $1
LIMIT 1
`, telegramID).Scan(
		&record.TelegramID,
		&record.TotalGames,
		&record.GamesWon,
		&record.GamesLost,
		&record.TotalWagered,
		&record.TotalWon,
		&record.BestMultiplier,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StatsRecord{}, ErrStatsNotFound
		}
		return StatsRecord{}, fmt.Errorf("find user stats: %w", err)
	}

	return record, nil
}

// EnsureRow creates an empty stats row for the user if one does not exist.
func (r *StatsRepo) EnsureRow(ctx context.Context, tx pgx.Tx, userID int64) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO user_stats (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`, userID); err != nil {
		return fmt.Errorf("ensure stats row: %w", err)
	}

	return nil
}

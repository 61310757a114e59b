package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type GameHistoryRepo struct {
	pool *pgxpool.Pool
}

type RoundRecord struct {
	ID          int64
	CrashPoint  float64
	TotalBet    float64
	TotalPayout float64
	PlayerCount int
	PlayedAt    time.Time
}

func NewGameHistoryRepo(pool *pgxpool.Pool) *GameHistoryRepo {
	return &GameHistoryRepo{pool: pool}
}

// RecentCrashes returns the latest completed rounds, newest first.
func (r *GameHistoryRepo) RecentCrashes(ctx context.Context, limit int) ([]RoundRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, crash_point, total_bet, total_payout, player_count, played_at
FROM game_history
WHERE is_completed
ORDER BY played_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent crashes: %w", err)
	}
	defer rows.Close()

	records := make([]RoundRecord, 0, limit)
	for rows.Next() {
		var record RoundRecord
		if err := rows.Scan(&record.ID, &record.CrashPoint, &record.TotalBet, &record.TotalPayout, &record.PlayerCount, &record.PlayedAt); err != nil {
			return nil, fmt.Errorf("scan round record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent crashes: %w", err)
	}

	return records, nil
}

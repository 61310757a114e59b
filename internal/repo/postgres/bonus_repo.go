package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrBonusNotFound       = errors.New("channel bonus not found")
	ErrBonusAlreadyClaimed = errors.New("channel bonus already claimed")
)

type BonusRepo struct {
	pool *pgxpool.Pool
}

type BonusRecord struct {
	ID          int64
	UserID      int64
	ChannelID   string
	BonusAmount float64
	VerifiedAt  *time.Time
	ClaimedAt   time.Time
	Attempts    int
}

func NewBonusRepo(pool *pgxpool.Pool) *BonusRepo {
	return &BonusRepo{pool: pool}
}

func (r *BonusRepo) Find(ctx context.Context, userID int64, channelID string) (BonusRecord, error) {
	if r.pool == nil {
		return BonusRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || channelID == "" {
		return BonusRecord{}, fmt.Errorf("invalid bonus lookup")
	}

	record, err := scanBonus(r.pool.QueryRow(ctx, `
SELECT id, user_id, channel_id, bonus_amount, subscription_verified_at, bonus_claimed_at, attempts_count
FROM channel_subscription_bonuses
WHERE user_id = $1 AND channel_id = $2
LIMIT 1
`, userID, channelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BonusRecord{}, ErrBonusNotFound
		}
		return BonusRecord{}, fmt.Errorf("find channel bonus: %w", err)
	}

	return record, nil
}

func (r *BonusRepo) Insert(ctx context.Context, tx pgx.Tx, userID int64, channelID string, amount float64, verifiedAt time.Time) (BonusRecord, error) {
	if tx == nil {
		return BonusRecord{}, fmt.Errorf("tx is nil")
	}
	if userID <= 0 || channelID == "" || amount <= 0 {
		return BonusRecord{}, fmt.Errorf("invalid bonus payload")
	}

	record, err := scanBonus(tx.QueryRow(ctx, `
INSERT INTO channel_subscription_bonuses (user_id, channel_id, bonus_amount, subscription_verified_at)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, channel_id, bonus_amount, subscription_verified_at, bonus_claimed_at, attempts_count
`, userID, channelID, amount, verifiedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return BonusRecord{}, ErrBonusAlreadyClaimed
		}
		return BonusRecord{}, fmt.Errorf("insert channel bonus: %w", err)
	}

	return record, nil
}

// RecordAttempt bumps the attempt counters on an existing claim row.
func (r *BonusRepo) RecordAttempt(ctx context.Context, userID int64, channelID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
UPDATE channel_subscription_bonuses
SET attempts_count = attempts_count + 1, last_attempt_at = NOW()
WHERE user_id = $1 AND channel_id = $2
`, userID, channelID)
	if err != nil {
		return fmt.Errorf("record bonus attempt: %w", err)
	}

	return nil
}

func (r *BonusRepo) ListByUser(ctx context.Context, userID int64) ([]BonusRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, channel_id, bonus_amount, subscription_verified_at, bonus_claimed_at, attempts_count
FROM channel_subscription_bonuses
WHERE user_id = $1
ORDER BY bonus_claimed_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("query channel bonuses: %w", err)
	}
	defer rows.Close()

	var records []BonusRecord
	for rows.Next() {
		record, err := scanBonus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel bonus: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel bonuses: %w", err)
	}

	return records, nil
}

func scanBonus(row pgx.Row) (BonusRecord, error) {
	var record BonusRecord
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.ChannelID,
		&record.BonusAmount,
		&record.VerifiedAt,
		&record.ClaimedAt,
		&record.Attempts,
	); err != nil {
		return BonusRecord{}, err
	}
	return record, nil
}

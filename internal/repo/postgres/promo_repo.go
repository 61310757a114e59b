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
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPromoAlreadyUsed = errors.New("promo code already used by this user")
)

type PromoRepo struct {
	pool *pgxpool.Pool
}

type PromoRecord struct {
	ID                    int64
	Code                  string
	BalanceReward         float64
	WithdrawalRequirement *float64
	MaxUses               int
	CurrentUses           int
	IsActive              bool
	CreatedAt             time.Time
	ExpiresAt             *time.Time
}

type PromoUseRecord struct {
	ID                    int64
	Code                  string
	BalanceGranted        float64
	WithdrawalRequirement *float64
	UsedAt                time.Time
}

func NewPromoRepo(pool *pgxpool.Pool) *PromoRepo {
	return &PromoRepo{pool: pool}
}

// LockActiveByCode loads an active promo code FOR UPDATE so concurrent
// redemptions serialize on the row.
func (r *PromoRepo) LockActiveByCode(ctx context.Context, tx pgx.Tx, code string) (PromoRecord, error) {
	if tx == nil {
		return PromoRecord{}, fmt.Errorf("tx is nil")
	}
	if code == "" {
		return PromoRecord{}, fmt.Errorf("promo code is empty")
	}

	var record PromoRecord
	err := tx.QueryRow(ctx, `
SELECT id, code, balance_reward, withdrawal_requirement, max_uses, current_uses, is_active, created_at, expires_at
FROM promo_codes
WHERE code = $1 AND is_active
FOR UPDATE
`, code).Scan(
		&record.ID,
		&record.Code,
		&record.BalanceReward,
		&record.WithdrawalRequirement,
		&record.MaxUses,
		&record.CurrentUses,
		&record.IsActive,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PromoRecord{}, ErrPromoNotFound
		}
		return PromoRecord{}, fmt.Errorf("lock promo code: %w", err)
	}

	return record, nil
}

func (r *PromoRepo) HasUse(ctx context.Context, tx pgx.Tx, promoID, userID int64) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("tx is nil")
	}

	var exists bool
	err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM promo_code_uses WHERE promo_code_id = $1 AND user_id = $2)
`, promoID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check promo use: %w", err)
	}

	return exists, nil
}

func (r *PromoRepo) InsertUse(ctx context.Context, tx pgx.Tx, promoID, userID int64, balanceGranted float64, withdrawalRequirement *float64) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}

	_, err := tx.Exec(ctx, `
INSERT INTO promo_code_uses (promo_code_id, user_id, balance_granted, withdrawal_requirement)
VALUES ($1, $2, $3, $4)
`, promoID, userID, balanceGranted, withdrawalRequirement)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPromoAlreadyUsed
		}
		return fmt.Errorf("insert promo use: %w", err)
	}

	return nil
}

func (r *PromoRepo) IncrementUses(ctx context.Context, tx pgx.Tx, promoID int64) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}

	tag, err := tx.Exec(ctx, `
UPDATE promo_codes
SET current_uses = current_uses + 1
WHERE id = $1
`, promoID)
	if err != nil {
		return fmt.Errorf("increment promo uses: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPromoNotFound
	}

	return nil
}

func (r *PromoRepo) ListUsesByUser(ctx context.Context, userID int64, limit int) ([]PromoUseRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT u.id, p.code, u.balance_granted, u.withdrawal_requirement, u.used_at
FROM promo_code_uses u
JOIN promo_codes p ON p.id = u.promo_code_id
WHERE u.user_id = $1
ORDER BY u.used_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query promo uses: %w", err)
	}
	defer rows.Close()

	records := make([]PromoUseRecord, 0, limit)
	for rows.Next() {
		var record PromoUseRecord
		if err := rows.Scan(&record.ID, &record.Code, &record.BalanceGranted, &record.WithdrawalRequirement, &record.UsedAt); err != nil {
			return nil, fmt.Errorf("scan promo use: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promo uses: %w", err)
	}

	return records, nil
}

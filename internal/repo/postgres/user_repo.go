package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID                      int64
	TelegramID              int64
	Username                *string
	FirstName               *string
	LastName                *string
	LanguageCode            string
	Balance                 float64
	WithdrawalLockedBalance float64
	TotalDeposited          float64
	TotalWithdrawn          float64
	IsActive                bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

type LeaderboardEntry struct {
	TelegramID int64
	Username   *string
	FirstName  *string
	TotalWon   float64
	TotalGames int
	GamesWon   int
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, telegram_id, username, first_name, last_name, language_code,
	balance, withdrawal_locked_balance, total_deposited, total_withdrawn,
	is_active, created_at, updated_at`

func (r *UserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid telegram id")
	}

	record, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE telegram_id = $1
LIMIT 1
`, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by telegram id: %w", err)
	}

	return record, nil
}

// GetOrCreate upserts the user row for a Telegram account, refreshing the
// profile fields Telegram sends with each authenticated request.
func (r *UserRepo) GetOrCreate(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid telegram id")
	}

	lang := strings.TrimSpace(languageCode)
	if lang == "" {
		lang = "en"
	}

	record, err := scanUser(r.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, username, first_name, last_name, language_code)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5)
ON CONFLICT (telegram_id) DO UPDATE SET
	username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
	first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
	last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name),
	updated_at = NOW()
RETURNING `+userColumns+`
`, telegramID, strings.TrimSpace(username), strings.TrimSpace(firstName), strings.TrimSpace(lastName), lang))
	if err != nil {
		return UserRecord{}, fmt.Errorf("get or create user: %w", err)
	}

	return record, nil
}

// LockByTelegramID loads the user row FOR UPDATE inside the given
// transaction. Balance mutations must go through this lock.
func (r *UserRepo) LockByTelegramID(ctx context.Context, tx pgx.Tx, telegramID int64) (UserRecord, error) {
	if tx == nil {
		return UserRecord{}, fmt.Errorf("tx is nil")
	}
	if telegramID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid telegram id")
	}

	record, err := scanUser(tx.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE telegram_id = $1
FOR UPDATE
`, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("lock user by telegram id: %w", err)
	}

	return record, nil
}

// ApplyBalanceDelta adjusts the balance and locked-balance columns on an
// already locked row and returns the resulting balance.
func (r *UserRepo) ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, userID int64, balanceDelta, lockedDelta float64) (float64, error) {
	if tx == nil {
		return 0, fmt.Errorf("tx is nil")
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}

	var newBalance float64
	err := tx.QueryRow(ctx, `
UPDATE users
SET
	balance = balance + $2,
	withdrawal_locked_balance = GREATEST(withdrawal_locked_balance + $3, 0),
	updated_at = NOW()
WHERE id = $1
RETURNING balance
`, userID, balanceDelta, lockedDelta).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("apply balance delta: %w", err)
	}

	return newBalance, nil
}

func (r *UserRepo) RecordDeposit(ctx context.Context, tx pgx.Tx, userID int64, amount float64) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if userID <= 0 || amount <= 0 {
		return fmt.Errorf("invalid deposit payload")
	}

	tag, err := tx.Exec(ctx, `
UPDATE users
SET total_deposited = total_deposited + $2, updated_at = NOW()
WHERE id = $1
`, userID, amount)
	if err != nil {
		return fmt.Errorf("record deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *UserRepo) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx, `
SELECT u.telegram_id, u.username, u.first_name, s.total_won, s.total_games, s.games_won
FROM user_stats s
JOIN users u ON u.id = s.user_id
WHERE u.is_active
ORDER BY s.total_won DESC, u.id ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		var entry LeaderboardEntry
		if err := rows.Scan(&entry.TelegramID, &entry.Username, &entry.FirstName, &entry.TotalWon, &entry.TotalGames, &entry.GamesWon); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}

	return entries, nil
}

// Rank returns the 1-based position of a player in the total_won ordering,
// or ErrUserNotFound when the player has no stats row yet.
func (r *UserRepo) Rank(ctx context.Context, telegramID int64) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return 0, fmt.Errorf("invalid telegram id")
	}

	var rank int64
	err := r.pool.QueryRow(ctx, `
SELECT ranked.position
FROM (
	SELECT u.telegram_id, RANK() OVER (ORDER BY s.total_won DESC, u.id ASC) AS position
	FROM user_stats s
	JOIN users u ON u.id = s.user_id
	WHERE u.is_active
) ranked
WHERE ranked.telegram_id = $1
`, telegramID).Scan(&rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("query player rank: %w", err)
	}

	return rank, nil
}

func scanUser(row pgx.Row) (UserRecord, error) {
	var record UserRecord
	if err := row.Scan(
		&record.ID,
		&record.TelegramID,
		&record.Username,
		&record.FirstName,
		&record.LastName,
		&record.LanguageCode,
		&record.Balance,
		&record.WithdrawalLockedBalance,
		&record.TotalDeposited,
		&record.TotalWithdrawn,
		&record.IsActive,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return UserRecord{}, err
	}
	return record, nil
}

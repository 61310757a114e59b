package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrGiftNotFound = errors.New("gift not found")

type GiftRepo struct {
	pool *pgxpool.Pool
}

type GiftRecord struct {
	ID             string
	Name           string
	Description    *string
	Price          float64
	TelegramGiftID string
	Emoji          *string
	ImageURL       *string
	IsActive       bool
	IsUnique       bool
	SortOrder      int
	CreatedAt      time.Time
}

func NewGiftRepo(pool *pgxpool.Pool) *GiftRepo {
	return &GiftRepo{pool: pool}
}

const giftColumns = `id, name, description, price, telegram_gift_id, emoji, image_url,
	is_active, is_unique, sort_order, created_at`

func (r *GiftRepo) ListActive(ctx context.Context) ([]GiftRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+giftColumns+`
FROM gifts
WHERE is_active
ORDER BY sort_order ASC, id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query active gifts: %w", err)
	}
	defer rows.Close()

	var records []GiftRecord
	for rows.Next() {
		record, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gifts: %w", err)
	}

	return records, nil
}

func (r *GiftRepo) FindByID(ctx context.Context, giftID string) (GiftRecord, error) {
	if r.pool == nil {
		return GiftRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if giftID == "" {
		return GiftRecord{}, fmt.Errorf("gift id is empty")
	}

	record, err := scanGift(r.pool.QueryRow(ctx, `
SELECT `+giftColumns+`
FROM gifts
WHERE id = $1
LIMIT 1
`, giftID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GiftRecord{}, ErrGiftNotFound
		}
		return GiftRecord{}, fmt.Errorf("find gift by id: %w", err)
	}

	return record, nil
}

func (r *GiftRepo) UpdateImageURL(ctx context.Context, giftID, imageURL string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if giftID == "" || imageURL == "" {
		return fmt.Errorf("invalid gift image payload")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE gifts
SET image_url = $2
WHERE id = $1
`, giftID, imageURL)
	if err != nil {
		return fmt.Errorf("update gift image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGiftNotFound
	}

	return nil
}

func scanGift(row pgx.Row) (GiftRecord, error) {
	var record GiftRecord
	if err := row.Scan(
		&record.ID,
		&record.Name,
		&record.Description,
		&record.Price,
		&record.TelegramGiftID,
		&record.Emoji,
		&record.ImageURL,
		&record.IsActive,
		&record.IsUnique,
		&record.SortOrder,
		&record.CreatedAt,
	); err != nil {
		return GiftRecord{}, err
	}
	return record, nil
}

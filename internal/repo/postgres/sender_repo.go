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

var ErrSenderNotFound = errors.New("verified sender not found")

type SenderRepo struct {
	pool *pgxpool.Pool
}

type SenderRecord struct {
	ChatID        int64
	Username      *string
	FirstName     *string
	LastName      *string
	VerifiedAt    time.Time
	LastMessageAt time.Time
	MessageCount  int
	IsBlocked     bool
	Notes         *string
}

func NewSenderRepo(pool *pgxpool.Pool) *SenderRepo {
	return &SenderRepo{pool: pool}
}

const senderColumns = `chat_id, username, first_name, last_name, verified_at,
	last_message_at, message_count, is_blocked, notes`

// Upsert records a message from the chat, creating the sender row on first
// contact and bumping counters afterwards.
func (r *SenderRepo) Upsert(ctx context.Context, chatID int64, username, firstName, lastName string) (SenderRecord, error) {
	if r.pool == nil {
		return SenderRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if chatID == 0 {
		return SenderRecord{}, fmt.Errorf("invalid chat id")
	}

	record, err := scanSender(r.pool.QueryRow(ctx, `
INSERT INTO verified_senders (chat_id, username, first_name, last_name)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
ON CONFLICT (chat_id) DO UPDATE SET
	username = COALESCE(NULLIF(EXCLUDED.username, ''), verified_senders.username),
	first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), verified_senders.first_name),
	last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), verified_senders.last_name),
	last_message_at = NOW(),
	message_count = verified_senders.message_count + 1
RETURNING `+senderColumns+`
`, chatID, strings.TrimSpace(username), strings.TrimSpace(firstName), strings.TrimSpace(lastName)))
	if err != nil {
		return SenderRecord{}, fmt.Errorf("upsert verified sender: %w", err)
	}

	return record, nil
}

func (r *SenderRepo) Find(ctx context.Context, chatID int64) (SenderRecord, error) {
	if r.pool == nil {
		return SenderRecord{}, fmt.Errorf("postgres pool is nil")
	}

	record, err := scanSender(r.pool.QueryRow(ctx, `
SELECT `+senderColumns+`
FROM verified_senders
WHERE chat_id = $1
LIMIT 1
`, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SenderRecord{}, ErrSenderNotFound
		}
		return SenderRecord{}, fmt.Errorf("find verified sender: %w", err)
	}

	return record, nil
}

func (r *SenderRepo) List(ctx context.Context, limit, offset int, includeBlocked bool) ([]SenderRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+senderColumns+`
FROM verified_senders
WHERE ($3 OR NOT is_blocked)
ORDER BY last_message_at DESC
LIMIT $1 OFFSET $2
`, limit, offset, includeBlocked)
	if err != nil {
		return nil, fmt.Errorf("query verified senders: %w", err)
	}
	defer rows.Close()

	records := make([]SenderRecord, 0, limit)
	for rows.Next() {
		record, err := scanSender(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verified sender: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verified senders: %w", err)
	}

	return records, nil
}

func (r *SenderRepo) SetBlocked(ctx context.Context, chatID int64, blocked bool, notes string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE verified_senders
SET is_blocked = $2, notes = NULLIF($3, '')
WHERE chat_id = $1
`, chatID, blocked, strings.TrimSpace(notes))
	if err != nil {
		return fmt.Errorf("set sender blocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSenderNotFound
	}

	return nil
}

func scanSender(row pgx.Row) (SenderRecord, error) {
	var record SenderRecord
	if err := row.Scan(
		&record.ChatID,
		&record.Username,
		&record.FirstName,
		&record.LastName,
		&record.VerifiedAt,
		&record.LastMessageAt,
		&record.MessageCount,
		&record.IsBlocked,
		&record.Notes,
	); err != nil {
		return SenderRecord{}, err
	}
	return record, nil
}

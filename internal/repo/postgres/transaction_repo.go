package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FnipsDanil/crashTest-sub001/internal/domain/enums"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepo struct {
	pool *pgxpool.Pool
}

type TransactionRecord struct {
	ID             int64
	UserID         int64
	GameID         *int64
	Type           enums.TransactionType
	Amount         float64
	BalanceAfter   float64
	Multiplier     *float64
	PaymentPayload *string
	Status         enums.TransactionStatus
	ExtraData      map[string]any
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// NewTransaction carries the caller-supplied fields for Insert.
type NewTransaction struct {
	UserID         int64
	Type           enums.TransactionType
	Amount         float64
	BalanceAfter   float64
	PaymentPayload *string
	Status         enums.TransactionStatus
	ExtraData      map[string]any
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Insert(ctx context.Context, tx pgx.Tx, txn NewTransaction) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("tx is nil")
	}
	if txn.UserID <= 0 {
		return 0, fmt.Errorf("invalid transaction user id")
	}
	if !txn.Type.Valid() {
		return 0, fmt.Errorf("invalid transaction type %q", txn.Type)
	}
	status := txn.Status
	if status == "" {
		status = enums.TransactionStatusCompleted
	}
	if !status.Valid() {
		return 0, fmt.Errorf("invalid transaction status %q", status)
	}

	extraJSON, err := marshalExtra(txn.ExtraData)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRow(ctx, `
INSERT INTO transactions (user_id, type, amount, balance_after, payment_payload, status, extra_data, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, CASE WHEN $6 = 'completed' THEN NOW() ELSE NULL END)
RETURNING id
`, txn.UserID, string(txn.Type), txn.Amount, txn.BalanceAfter, txn.PaymentPayload, string(status), extraJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	return id, nil
}

func (r *TransactionRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]TransactionRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, game_id, type, amount, balance_after, multiplier,
	payment_payload, status, extra_data, created_at, completed_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	records := make([]TransactionRecord, 0, limit)
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return records, nil
}

func (r *TransactionRepo) FindByPaymentPayload(ctx context.Context, payload string) (TransactionRecord, error) {
	if r.pool == nil {
		return TransactionRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if payload == "" {
		return TransactionRecord{}, fmt.Errorf("payment payload is empty")
	}

	record, err := scanTransaction(r.pool.QueryRow(ctx, `
SELECT id, user_id, game_id, type, amount, balance_after, multiplier,
	payment_payload, status, extra_data, created_at, completed_at
FROM transactions
WHERE payment_payload = $1
ORDER BY created_at DESC
LIMIT 1
`, payload))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransactionRecord{}, ErrTransactionNotFound
		}
		return TransactionRecord{}, fmt.Errorf("find transaction by payload: %w", err)
	}

	return record, nil
}

func scanTransaction(row pgx.Row) (TransactionRecord, error) {
	var (
		record   TransactionRecord
		txnType  string
		status   string
		rawExtra []byte
	)
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.GameID,
		&txnType,
		&record.Amount,
		&record.BalanceAfter,
		&record.Multiplier,
		&record.PaymentPayload,
		&status,
		&rawExtra,
		&record.CreatedAt,
		&record.CompletedAt,
	); err != nil {
		return TransactionRecord{}, err
	}

	record.Type = enums.TransactionType(txnType)
	record.Status = enums.TransactionStatus(status)
	if len(rawExtra) > 0 {
		_ = json.Unmarshal(rawExtra, &record.ExtraData)
	}
	return record, nil
}

func marshalExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("marshal transaction extra data: %w", err)
	}
	return string(raw), nil
}

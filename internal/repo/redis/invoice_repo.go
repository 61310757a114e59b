package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/FnipsDanil/crashTest-sub001/internal/domain/enums"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

// invoiceTTL matches the lifetime Telegram gives an unpaid invoice link.
const invoiceTTL = time.Hour

type InvoiceRepo struct {
	client *goredis.Client
}

type InvoiceRecord struct {
	Payload    string              `json:"payload"`
	TelegramID int64               `json:"telegram_id"`
	Amount     float64             `json:"amount"`
	Status     enums.InvoiceStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}

func NewInvoiceRepo(client *goredis.Client) *InvoiceRepo {
	return &InvoiceRepo{client: client}
}

func (r *InvoiceRepo) Put(ctx context.Context, record InvoiceRecord) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if record.Payload == "" || record.TelegramID <= 0 || record.Amount <= 0 {
		return fmt.Errorf("invalid invoice record")
	}
	if !record.Status.Valid() {
		return fmt.Errorf("invalid invoice status %q", record.Status)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal invoice record: %w", err)
	}

	if err := r.client.Set(ctx, invoiceKey(record.Payload), raw, invoiceTTL).Err(); err != nil {
		return fmt.Errorf("store invoice record: %w", err)
	}

	return nil
}

func (r *InvoiceRepo) Get(ctx context.Context, payload string) (InvoiceRecord, error) {
	if r.client == nil {
		return InvoiceRecord{}, fmt.Errorf("redis client is nil")
	}
	if payload == "" {
		return InvoiceRecord{}, fmt.Errorf("invoice payload is empty")
	}

	raw, err := r.client.Get(ctx, invoiceKey(payload)).Bytes()
	if err == goredis.Nil {
		return InvoiceRecord{}, ErrInvoiceNotFound
	}
	if err != nil {
		return InvoiceRecord{}, fmt.Errorf("load invoice record: %w", err)
	}

	var record InvoiceRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return InvoiceRecord{}, fmt.Errorf("decode invoice record: %w", err)
	}

	return record, nil
}

// MarkStatus updates the cached invoice status, keeping the remaining TTL.
func (r *InvoiceRepo) MarkStatus(ctx context.Context, payload string, status enums.InvoiceStatus) (InvoiceRecord, error) {
	if !status.Valid() {
		return InvoiceRecord{}, fmt.Errorf("invalid invoice status %q", status)
	}

	record, err := r.Get(ctx, payload)
	if err != nil {
		return InvoiceRecord{}, err
	}
	record.Status = status

	raw, err := json.Marshal(record)
	if err != nil {
		return InvoiceRecord{}, fmt.Errorf("marshal invoice record: %w", err)
	}

	if err := r.client.Set(ctx, invoiceKey(payload), raw, goredis.KeepTTL).Err(); err != nil {
		return InvoiceRecord{}, fmt.Errorf("update invoice record: %w", err)
	}

	return record, nil
}

package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

// BalanceRepo caches player balances in a single hash keyed by telegram
// id. Postgres stays the source of truth; the cache is refreshed after
// every balance mutation and invalidated on any doubt.
type BalanceRepo struct {
	client *goredis.Client
}

func NewBalanceRepo(client *goredis.Client) *BalanceRepo {
	return &BalanceRepo{client: client}
}

func (r *BalanceRepo) Get(ctx context.Context, telegramID int64) (float64, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if telegramID <= 0 {
		return 0, false, fmt.Errorf("invalid telegram id")
	}

	raw, err := r.client.HGet(ctx, balanceHashKey, strconv.FormatInt(telegramID, 10)).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cached balance: %w", err)
	}

	balance, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Poisoned entry, drop it and fall back to the database.
		_ = r.client.HDel(ctx, balanceHashKey, strconv.FormatInt(telegramID, 10)).Err()
		return 0, false, nil
	}

	return balance, true, nil
}

func (r *BalanceRepo) Set(ctx context.Context, telegramID int64, balance float64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if telegramID <= 0 {
		return fmt.Errorf("invalid telegram id")
	}

	if err := r.client.HSet(ctx, balanceHashKey,
		strconv.FormatInt(telegramID, 10),
		strconv.FormatFloat(balance, 'f', 2, 64),
	).Err(); err != nil {
		return fmt.Errorf("cache balance: %w", err)
	}

	return nil
}

func (r *BalanceRepo) Invalidate(ctx context.Context, telegramID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.HDel(ctx, balanceHashKey, strconv.FormatInt(telegramID, 10)).Err(); err != nil {
		return fmt.Errorf("invalidate cached balance: %w", err)
	}

	return nil
}

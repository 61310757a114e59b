package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSettingNotFound = errors.New("system setting not found")

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if key == "" {
		return nil, fmt.Errorf("setting key is empty")
	}

	var raw []byte
	err := r.pool.QueryRow(ctx, `
SELECT value
FROM system_settings
WHERE key = $1
LIMIT 1
`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}

	return json.RawMessage(raw), nil
}

func (r *SettingsRepo) Set(ctx context.Context, key string, value any, description string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if key == "" {
		return fmt.Errorf("setting key is empty")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %q: %w", key, err)
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO system_settings (key, value, description)
VALUES ($1, $2::jsonb, NULLIF($3, ''))
ON CONFLICT (key) DO UPDATE SET
	value = EXCLUDED.value,
	description = COALESCE(EXCLUDED.description, system_settings.description),
	updated_at = NOW()
`, key, string(raw), description); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}

	return nil
}

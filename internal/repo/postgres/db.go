package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	migrateMaxAttempts = 30
	migrateRetryDelay  = time.Second
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	// Sized for PgBouncer transaction pooling in front of the database.
	cfg.MinConns = 0
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	return pool, nil
}

// Migrate applies the declarative schema, waiting out a database that is
// still starting up. Partition creation for the current months is done
// separately by the partitions job.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	if pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= migrateMaxAttempts; attempt++ {
		if err := applySchema(ctx, pool); err != nil {
			lastErr = err
			if isStartingUp(err) {
				log.Warn("database is starting up, retrying",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", migrateMaxAttempts),
				)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(migrateRetryDelay):
				}
				continue
			}
			return fmt.Errorf("apply schema: %w", err)
		}

		log.Info("database schema is up to date")
		return nil
	}

	return fmt.Errorf("database did not become ready after %d attempts: %w", migrateMaxAttempts, lastErr)
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func isStartingUp(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database system is starting up") ||
		strings.Contains(msg, "cannot connect now") ||
		strings.Contains(msg, "connection refused")
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PartitionedTables lists the range-partitioned tables that need a
// partition per calendar month.
var PartitionedTables = []string{"game_history", "transactions"}

type PartitionRepo struct {
	pool *pgxpool.Pool
}

func NewPartitionRepo(pool *pgxpool.Pool) *PartitionRepo {
	return &PartitionRepo{pool: pool}
}

// CreateMonthlyPartition creates the partition of table covering the given
// month. Returns false if the partition already existed.
func (r *PartitionRepo) CreateMonthlyPartition(ctx context.Context, table string, year int, month time.Month) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if !isPartitionedTable(table) {
		return false, fmt.Errorf("table %q is not partitioned", table)
	}
	if year < 2020 || year > 2100 {
		return false, fmt.Errorf("invalid partition year %d", year)
	}

	name := fmt.Sprintf("%s_%04d_%02d", table, year, int(month))

	var exists bool
	if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relname = $1 AND n.nspname = 'public'
)
`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check partition %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	// Table and partition names are built from a fixed whitelist and
	// validated integers, not request input.
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')`,
		name, table,
		from.Format("2006-01-02"), to.Format("2006-01-02"),
	)
	if _, err := r.pool.Exec(ctx, stmt); err != nil {
		return false, fmt.Errorf("create partition %s: %w", name, err)
	}

	return true, nil
}

// EnsureUpcomingPartitions makes sure every partitioned table has
// partitions for the current month and the following months-1 months.
func (r *PartitionRepo) EnsureUpcomingPartitions(ctx context.Context, months int) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if months <= 0 {
		months = 1
	}

	created := 0
	start := time.Now().UTC()
	for i := 0; i < months; i++ {
		at := start.AddDate(0, i, 0)
		for _, table := range PartitionedTables {
			ok, err := r.CreateMonthlyPartition(ctx, table, at.Year(), at.Month())
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}
	}

	return created, nil
}

func isPartitionedTable(table string) bool {
	for _, known := range PartitionedTables {
		if table == known {
			return true
		}
	}
	return false
}

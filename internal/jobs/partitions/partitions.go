package partitions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultMonthsAhead = 4

type partitionCreator interface {
	EnsureUpcomingPartitions(ctx context.Context, months int) (int, error)
}

// Job keeps monthly partitions of the append-only tables created ahead
// of time so inserts never land on a missing partition.
type Job struct {
	creator partitionCreator
	months  int
	logger  *zap.Logger
}

func New(creator partitionCreator, months int, logger *zap.Logger) *Job {
	if months <= 0 {
		months = defaultMonthsAhead
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		creator: creator,
		months:  months,
		logger:  logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.creator == nil {
		return nil
	}

	created, err := j.creator.EnsureUpcomingPartitions(ctx, j.months)
	if err != nil {
		return fmt.Errorf("ensure upcoming partitions: %w", err)
	}

	if created > 0 {
		j.logger.Info("created monthly partitions", zap.Int("created", created), zap.Int("months_ahead", j.months))
	}
	return nil
}

// RunLoop runs the job once immediately and then on every tick until the
// context is cancelled.
func (j *Job) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if err := j.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				return err
			}
		}
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/FnipsDanil/crashTest-sub001/internal/config"
	"github.com/FnipsDanil/crashTest-sub001/internal/infra/logger"
	"github.com/FnipsDanil/crashTest-sub001/internal/jobs/partitions"
	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
)

// One-shot partition maintenance for deploy hooks and cron.
func main() {
	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal("init postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := pgrepo.Migrate(ctx, pool, log); err != nil {
		log.Fatal("migrate postgres", zap.Error(err))
	}

	job := partitions.New(pgrepo.NewPartitionRepo(pool), cfg.Jobs.PartitionMonths, log)
	if err := job.Run(ctx); err != nil {
		log.Fatal("create partitions", zap.Error(err))
	}

	log.Info("partition maintenance finished")
}

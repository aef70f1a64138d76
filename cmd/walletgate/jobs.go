package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/layer-3/walletgate/config"
	"github.com/layer-3/walletgate/riverjobs"
	"github.com/layer-3/walletgate/service"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// startJobs schedules the challenge purge. With Postgres it runs as a River
// periodic job; otherwise an in-process cron scheduler runs it.
func startJobs(ctx context.Context, cfg *config.Config, nonces *service.NonceService) (func(), error) {
	args := riverjobs.PurgeExpiredChallengesArgs{RetentionMinutes: cfg.Jobs.RetentionMinutes}

	if cfg.Postgres.DSN == "" {
		return startLocalCron(cfg.Jobs.PurgeSchedule, args, nonces)
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("river pool: %w", err)
	}
	driver := riverpgxv5.New(pool)

	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		pool.Close()
		return nil, fmt.Errorf("river migrate: %w", err)
	}

	workers := river.NewWorkers()
	riverjobs.RegisterPurgeExpiredChallengesWorker(workers, nonces)

	client, err := river.NewClient(driver, &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: 2}},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("river client: %w", err)
	}
	if err := riverjobs.AddPurgeExpiredChallengesPeriodicJob(client, cfg.Jobs.PurgeSchedule, args, true); err != nil {
		pool.Close()
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("river start: %w", err)
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			log.WithError(err).Warn("river stop")
		}
		pool.Close()
	}, nil
}

func startLocalCron(spec string, args riverjobs.PurgeExpiredChallengesArgs, nonces *service.NonceService) (func(), error) {
	if _, err := riverjobs.ParseSchedule(spec); err != nil {
		return nil, err
	}
	worker := riverjobs.NewPurgeExpiredChallengesWorker(nonces)

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := worker.Work(ctx, &river.Job[riverjobs.PurgeExpiredChallengesArgs]{Args: args}); err != nil {
			log.WithError(err).Warn("challenge purge failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule purge: %w", err)
	}
	c.Start()

	return func() { <-c.Stop().Done() }, nil
}

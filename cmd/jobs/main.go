// Command jobs runs the scheduled maintenance work: draining the webhook
// queue through the processing chain and warming the title-lookup cache.
// It is meant to be invoked from cron or a job scheduler.
//
//	jobs drain [-max-time 5m]
//	jobs cachewarm
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hookbridge/internal/chain"
	"hookbridge/internal/contact"
	"hookbridge/internal/events"
	"hookbridge/internal/lookup"
	"hookbridge/internal/platform/config"
	"hookbridge/internal/platform/logger"
	"hookbridge/internal/platform/postgres"
	"hookbridge/internal/platform/redis"
	"hookbridge/internal/queue"
	"hookbridge/internal/runner"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: jobs <drain|cachewarm> [flags]")
		os.Exit(2)
	}

	cfg := config.FromEnv()
	log := logger.New(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "drain":
		fs := flag.NewFlagSet("drain", flag.ExitOnError)
		maxTime := fs.Duration("max-time", 0, "stop cleanly after this much wall-clock time (0 = no limit)")
		_ = fs.Parse(os.Args[2:])
		err = drain(ctx, cfg, log, *maxTime)
	case "cachewarm":
		err = cachewarm(ctx, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}

	if err != nil {
		log.Error("job failed", "command", os.Args[1], "error", err.Error())
		os.Exit(1)
	}
}

func drain(ctx context.Context, cfg config.Config, log *slog.Logger, maxTime time.Duration) error {
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	if db == nil {
		return fmt.Errorf("DATABASE_URL must be set for drain")
	}
	defer db.Close()

	q := queue.NewPostgresQueue(db)
	if err := q.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating queue: %w", err)
	}
	store := contact.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating contact store: %w", err)
	}

	cache, closeCache, err := buildCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("connecting to kafka: %w", err)
		}
		publisher = kp
	}
	defer publisher.Close()

	deps := chain.Deps{
		Store:     store,
		Resolver:  contact.NewResolver(store, log, nil),
		Cache:     cache,
		Publisher: publisher,
		Log:       log,
	}
	registry := chain.NewRegistry(func() []chain.Step { return chain.DefaultSteps(deps) })
	processor := chain.NewProcessor(registry, cache, log)

	result, err := runner.New(q, processor, log, nil).Run(ctx, maxTime)
	if err != nil {
		return err
	}
	log.Info("drain finished", "processed", result.Processed, "errors", result.ErrorCount)
	if result.ErrorCount > 0 {
		return fmt.Errorf("%d submissions could not be processed", result.ErrorCount)
	}
	return nil
}

func cachewarm(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	cache, closeCache, err := buildCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	if err := cache.Warm(ctx); err != nil {
		return err
	}
	log.Info("lookup cache warmed")
	return nil
}

func buildCache(ctx context.Context, cfg config.Config, log *slog.Logger) (*lookup.Cache, func(), error) {
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	closeFn := func() {}
	var store lookup.Store
	if redisClient != nil {
		store = lookup.NewRedisStore(redisClient.Client)
		closeFn = func() { redisClient.Close() }
	}

	fetcher := lookup.NewClient(cfg.LookupBaseURL, cfg.LookupUsername)
	return lookup.NewCache(fetcher, store, config.CacheTTL, log, nil), closeFn, nil
}

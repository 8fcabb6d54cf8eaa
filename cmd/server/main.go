package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"hookbridge/internal/contact"
	"hookbridge/internal/firewall"
	"hookbridge/internal/health"
	"hookbridge/internal/jwtauth"
	"hookbridge/internal/lookup"
	"hookbridge/internal/platform/config"
	"hookbridge/internal/platform/httpserver"
	"hookbridge/internal/platform/logger"
	"hookbridge/internal/platform/metrics"
	"hookbridge/internal/platform/postgres"
	"hookbridge/internal/platform/redis"
	"hookbridge/internal/queue"
	"hookbridge/internal/webhookhttp"
)

// main wires dependencies and owns the server lifecycle. Webhook processing
// itself runs out of band via cmd/jobs; this process only receives, screens
// and enqueues.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err.Error())
		os.Exit(1)
	}

	var q queue.Queue
	if db != nil {
		pq := queue.NewPostgresQueue(db)
		if err := pq.Migrate(ctx); err != nil {
			log.Error("queue migration failed", "error", err.Error())
			os.Exit(1)
		}
		q = pq
	} else {
		log.Warn("DATABASE_URL not set, queued webhooks will not survive restarts")
		q = queue.NewInMemoryQueue()
	}

	// The contact tables are owned by the processing side but migrating here
	// too keeps a fresh deployment usable before the first job run.
	if db != nil {
		if err := contact.NewPostgresStore(db).Migrate(ctx); err != nil {
			log.Error("contact store migration failed", "error", err.Error())
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	var lookupStore lookup.Store
	if redisClient != nil {
		lookupStore = lookup.NewRedisStore(redisClient.Client)
		defer redisClient.Close()
	}

	fetcher := lookup.NewClient(cfg.LookupBaseURL, cfg.LookupUsername)
	cache := lookup.NewCache(fetcher, lookupStore, config.CacheTTL, log, m)

	reporter := health.NewReporter(cfg.LookupUsername, cfg.WebhookSecret, cache, q, log)
	handler := webhookhttp.New(
		firewall.New(cfg.WebhookSecret),
		q,
		reporter,
		log,
		m,
		jwtauth.NewService(cfg.JWTSigningKey),
	)

	router := chi.NewRouter()
	handler.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting hookbridge", "addr", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shut down cleanly")
}

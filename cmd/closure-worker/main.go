// Command closure-worker consumes deferred session closure jobs and applies
// them to the shared overlay store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"youthsessions/internal/platform/config"
	"youthsessions/internal/platform/database"
	"youthsessions/internal/platform/health"
	"youthsessions/internal/platform/kafka/consumer"
	"youthsessions/internal/platform/logger"
	"youthsessions/internal/platform/metrics"
	"youthsessions/internal/platform/redis"
	sessionmetrics "youthsessions/internal/sessions/metrics"
	"youthsessions/internal/sessions/store"
	"youthsessions/internal/sessions/workers/closure"
)

var version = "dev"

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	if err := cfg.RequireWorker(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("closure worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("closure worker stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("initializing closure worker",
		"overlay_store", cfg.OverlayStore,
		"topic", cfg.Kafka.ClosureTopic,
		"group_id", cfg.Kafka.GroupID,
	)
	metrics.New().SetBuildInfo("closure-worker", version)
	sessionMetrics := sessionmetrics.New()
	checks := health.New(cfg.Environment)

	var overlays closure.OverlayCloser
	switch cfg.OverlayStore {
	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("failed to close database pool", "error", err)
			}
		}()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		checks.RegisterCheck("postgres", db.Health)
		overlays = store.NewPostgres(db.DB(), sessionMetrics)
	case config.StoreRedis:
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := rc.Close(); err != nil {
				log.Error("failed to close redis client", "error", err)
			}
		}()
		checks.RegisterCheck("redis", rc.Health)
		go rc.RunPoolStats(ctx, clockwork.NewRealClock(), 15*time.Second)
		overlays = store.NewRedis(rc.Client, sessionMetrics)
	default:
		return fmt.Errorf("unsupported overlay store %q for the closure worker", cfg.OverlayStore)
	}

	worker, err := closure.New(overlays,
		closure.WithLogger(log),
		closure.WithMetrics(sessionMetrics),
	)
	if err != nil {
		return fmt.Errorf("build closure worker: %w", err)
	}

	c, err := consumer.New(consumer.Config{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topics:          []string{cfg.Kafka.ClosureTopic},
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
	}, worker, log)
	if err != nil {
		return fmt.Errorf("build kafka consumer: %w", err)
	}
	checks.RegisterCheck("kafka", c.Ping)

	r := chi.NewRouter()
	checks.Register(r)
	r.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              cfg.Worker.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("starting probe server", "addr", cfg.Worker.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("probe server error", "error", err)
		}
	}()

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		c.Run(ctx)
	}()
	log.Info("consuming closure jobs", "topic", cfg.Kafka.ClosureTopic)
	<-ctx.Done()

	log.Info("shutting down closure worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancel()
	select {
	case <-consumed:
	case <-shutdownCtx.Done():
		log.Error("consumer did not stop before the shutdown timeout")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("probe server shutdown: %w", err)
	}
	return nil
}

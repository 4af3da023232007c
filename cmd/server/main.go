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

	"github.com/jonboulle/clockwork"

	identitystore "youthsessions/internal/identity/store"
	"youthsessions/internal/identity/tokenexchange"
	"youthsessions/internal/platform/config"
	"youthsessions/internal/platform/database"
	"youthsessions/internal/platform/health"
	"youthsessions/internal/platform/kafka/producer"
	"youthsessions/internal/platform/logger"
	"youthsessions/internal/platform/metrics"
	"youthsessions/internal/platform/redis"
	"youthsessions/internal/platform/tracer"
	"youthsessions/internal/ratelimit/gate"
	gatemetrics "youthsessions/internal/ratelimit/metrics"
	"youthsessions/internal/seeder"
	"youthsessions/internal/sessions/gateway"
	"youthsessions/internal/sessions/handler"
	sessionmetrics "youthsessions/internal/sessions/metrics"
	"youthsessions/internal/sessions/partner"
	"youthsessions/internal/sessions/reconcile"
	"youthsessions/internal/sessions/scheduler"
	"youthsessions/internal/sessions/service"
	"youthsessions/internal/sessions/store"
	httptransport "youthsessions/internal/transport/http"
	"youthsessions/pkg/platform/middleware/request"
)

var version = "dev"

// infra holds the connections shared by the stores and the readiness checks.
type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Error("failed to close kafka producer", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Error("failed to close database pool", "error", err)
		}
	}
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	if err := cfg.RequireServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("initializing youthsessions",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"overlay_store", cfg.OverlayStore,
		"kafka_enabled", cfg.Kafka.Enabled(),
	)

	platformMetrics := metrics.New()
	platformMetrics.SetBuildInfo("server", version)
	sessionMetrics := sessionmetrics.New()

	deps := &infra{}
	defer deps.close(log)

	overlays, identities, err := buildStores(ctx, cfg, deps, sessionMetrics, log)
	if err != nil {
		return err
	}

	gates, err := buildGates(cfg.Gates, log)
	if err != nil {
		return err
	}

	api := partner.NewHTTPClient(cfg.Partner.BaseURL, partner.Keys{
		SessionList:     cfg.Partner.SessionListKey,
		SessionDetail:   cfg.Partner.SessionDetailKey,
		EnrollmentWrite: cfg.Partner.EnrollmentWriteKey,
	}, cfg.Partner.Timeout)

	gw, err := gateway.New(api, identities, gates,
		gateway.WithLogger(log),
		gateway.WithTracer(tracer.NewOTel("youthsessions/gateway")),
		gateway.WithMetrics(sessionMetrics),
		gateway.WithRolloutDate(cfg.Partner.RolloutDate),
	)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	reconciler, err := reconcile.New(gw, overlays,
		reconcile.WithLogger(log),
		reconcile.WithMetrics(sessionMetrics),
	)
	if err != nil {
		return fmt.Errorf("build reconciler: %w", err)
	}

	exchanger, err := tokenexchange.New(cfg.IdP.IssuerURL, cfg.IdP.ClientID, cfg.IdP.ClientSecret, cfg.IdP.Timeout,
		tokenexchange.WithLogger(log),
		tokenexchange.WithMetrics(platformMetrics),
	)
	if err != nil {
		return fmt.Errorf("build token exchanger: %w", err)
	}

	closures, err := buildScheduler(cfg.Kafka, deps, sessionMetrics, log)
	if err != nil {
		return err
	}

	svc, err := service.New(gw, overlays, reconciler, identities, exchanger,
		service.WithScheduler(closures),
		service.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("build session service: %w", err)
	}

	clock := clockwork.NewRealClock()
	router := httptransport.NewRouter(httptransport.Config{
		Clock:          clock,
		RequestTimeout: cfg.Server.RequestTimeout,
		Latency:        request.NewMetrics(),
		ServeMetrics:   true,
	}, handler.New(svc, log), newHealth(cfg, deps, gw), log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if deps.redis != nil {
		go deps.redis.RunPoolStats(ctx, clock, 15*time.Second)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

type overlayStore interface {
	service.OverlayStore
	reconcile.OverlayStore
}

type identityDirectory interface {
	gateway.IdentityResolver
	service.StructureDirectory
}

// buildStores opens the configured overlay backend. Identities live in
// Postgres whenever a database is configured.
func buildStores(ctx context.Context, cfg config.Config, deps *infra, m *sessionmetrics.Metrics, log *slog.Logger) (overlayStore, identityDirectory, error) {
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		deps.db = db
		if err := db.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	var identities identityDirectory
	if deps.db != nil {
		identities = identitystore.NewPostgres(deps.db.DB())
	} else {
		identities = identitystore.NewInMemory()
	}

	var overlays overlayStore
	switch cfg.OverlayStore {
	case config.StorePostgres:
		overlays = store.NewPostgres(deps.db.DB(), m)
	case config.StoreRedis:
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.redis = rc
		overlays = store.NewRedis(rc.Client, m)
	default:
		mem := store.NewInMemory()
		overlays = mem
		if cfg.SeedDemoData {
			memIdentities, ok := identities.(*identitystore.InMemoryStore)
			if !ok {
				log.Warn("demo data is only seeded when identities are held in memory")
				break
			}
			if err := seeder.New(memIdentities, mem, log).SeedAll(ctx); err != nil {
				return nil, nil, fmt.Errorf("seed demo data: %w", err)
			}
		}
	}
	return overlays, identities, nil
}

func buildGates(cfg config.Gates, log *slog.Logger) (gateway.Gates, error) {
	m := gatemetrics.New()
	newGate := func(name string, capacity int) (*gate.Gate, error) {
		g, err := gate.New(name, capacity, cfg.Window, gate.WithLogger(log), gate.WithMetrics(m))
		if err != nil {
			return nil, fmt.Errorf("build %s gate: %w", name, err)
		}
		return g, nil
	}

	listing, err := newGate("listing", cfg.ListingCapacity)
	if err != nil {
		return gateway.Gates{}, err
	}
	detail, err := newGate("detail", cfg.DetailCapacity)
	if err != nil {
		return gateway.Gates{}, err
	}
	write, err := newGate("write", cfg.WriteCapacity)
	if err != nil {
		return gateway.Gates{}, err
	}
	return gateway.Gates{Listing: listing, Detail: detail, Write: write}, nil
}

func buildScheduler(cfg config.Kafka, deps *infra, m *sessionmetrics.Metrics, log *slog.Logger) (service.ClosureScheduler, error) {
	if !cfg.Enabled() {
		log.Info("kafka not configured, closure jobs will only be logged")
		return scheduler.NewLogging(log), nil
	}
	p, err := producer.New(producer.Config{
		Brokers:         cfg.Brokers,
		Acks:            cfg.Acks,
		Retries:         cfg.Retries,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build kafka producer: %w", err)
	}
	deps.producer = p

	s, err := scheduler.NewKafka(p,
		scheduler.WithTopic(cfg.ClosureTopic),
		scheduler.WithMetrics(m),
		scheduler.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("build closure scheduler: %w", err)
	}
	return s, nil
}

func newHealth(cfg config.Config, deps *infra, gw *gateway.Gateway) *health.Handler {
	checks := health.New(cfg.Environment)
	checks.RegisterUpstream("partner", gw.PartnerDegraded)
	if deps.db != nil {
		checks.RegisterCheck("postgres", deps.db.Health)
	}
	if deps.redis != nil {
		checks.RegisterCheck("redis", deps.redis.Health)
	}
	if deps.producer != nil {
		checks.RegisterCheck("kafka", deps.producer.Ping)
	}
	return checks
}

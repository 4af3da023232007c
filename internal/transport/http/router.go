// Package httptransport assembles the public HTTP surface: the middleware
// stack, probes, the scrape endpoint and the bearer-protected session routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"youthsessions/internal/platform/health"
	"youthsessions/internal/platform/metrics"
	"youthsessions/pkg/platform/middleware/auth"
	"youthsessions/pkg/platform/middleware/request"
	"youthsessions/pkg/platform/middleware/requesttime"
	"youthsessions/pkg/platform/validation"
)

// Routes is implemented by handlers that mount themselves on a router.
type Routes interface {
	Register(r chi.Router)
}

type Config struct {
	RequestTimeout time.Duration
	// Latency is optional; nil records nothing.
	Latency *request.Metrics
	// ServeMetrics mounts /metrics.
	ServeMetrics bool
	// Clock pins request time; nil uses the wall clock.
	Clock clockwork.Clock
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg Config, sessions Routes, checks *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Latency, RoutePattern))
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}
	r.Use(request.BodyLimit(validation.MaxBodySize))
	r.Use(request.ContentTypeJSON)
	r.Use(requesttime.Middleware(cfg.Clock))

	if checks != nil {
		checks.Register(r)
	}
	if cfg.ServeMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(logger))
		sessions.Register(r)
	})
	return r
}

// RoutePattern labels a request by its chi pattern so ids stay out of metric labels.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Package health serves liveness, readiness and status probes.
//
// Readiness covers what this process owns (database, redis, brokers). The
// partner is reported separately: its outage degrades the service but the
// process stays ready, since reads fail fast with upstream_unavailable.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"youthsessions/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc reports a dependency's health; nil means healthy.
type CheckFunc func(ctx context.Context) error

// DegradedFunc reports whether an upstream is currently failing.
type DegradedFunc func() bool

const checkTimeout = 2 * time.Second

type Handler struct {
	startTime   time.Time
	environment string

	mu        sync.RWMutex
	checks    map[string]CheckFunc
	upstreams map[string]DegradedFunc
}

func New(environment string) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
		checks:      make(map[string]CheckFunc),
		upstreams:   make(map[string]DegradedFunc),
	}
}

// RegisterCheck adds a dependency to the readiness probe.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RegisterUpstream adds an upstream to the status endpoint.
func (h *Handler) RegisterUpstream(name string, degraded DegradedFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.upstreams[name] = degraded
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs the checks concurrently and answers 503 if any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	checks := make([]CheckFunc, 0, len(h.checks))
	for name, check := range h.checks {
		names = append(names, name)
		checks = append(checks, check)
	}
	h.mu.RUnlock()

	results := make([]error, len(checks))
	var eg errgroup.Group
	for i, check := range checks {
		eg.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			results[i] = check(ctx)
			return nil
		})
	}
	_ = eg.Wait()

	response := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	for i, name := range names {
		if results[i] != nil {
			response.Checks[name] = "down: " + results[i].Error()
			response.Status = "not_ready"
			continue
		}
		response.Checks[name] = "up"
	}

	if response.Status != "ready" {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

type StatusResponse struct {
	Status        string   `json:"status"`
	Version       string   `json:"version"`
	Environment   string   `json:"environment"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Timestamp     string   `json:"timestamp"`
	Degraded      []string `json:"degraded,omitempty"`
}

// HandleStatus reports version and uptime, and "degraded" while any upstream fails.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	var degraded []string
	for name, isDegraded := range h.upstreams {
		if isDegraded() {
			degraded = append(degraded, name)
		}
	}
	h.mu.RUnlock()
	sort.Strings(degraded)

	status := "healthy"
	if len(degraded) > 0 {
		status = "degraded"
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        status,
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Degraded:      degraded,
	})
}

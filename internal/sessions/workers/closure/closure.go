// Package closure applies deferred closure jobs to the overlay store.
package closure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"youthsessions/internal/platform/kafka/consumer"
	"youthsessions/internal/sessions/metrics"
	"youthsessions/internal/sessions/scheduler"
)

// Result describes one applied job.
type Result struct {
	Requested int
	Closed    int
	Duration  time.Duration
}

type OverlayCloser interface {
	CloseMany(ctx context.Context, structureID string, sessionIDs []string, closedAt, modifiedAt time.Time) (int, error)
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(w *Worker) {
		w.clock = clock
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// Worker consumes closure jobs. It implements consumer.Handler.
type Worker struct {
	overlays OverlayCloser
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(overlays OverlayCloser, opts ...Option) (*Worker, error) {
	if overlays == nil {
		return nil, fmt.Errorf("overlay store is required")
	}
	w := &Worker{
		overlays: overlays,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Handle decodes and applies one job. Malformed payloads and foreign job types
// are logged and acknowledged; store failures are returned so the offset stays uncommitted.
func (w *Worker) Handle(ctx context.Context, msg *consumer.Message) error {
	if jobType, ok := msg.Headers["job_type"]; ok && jobType != scheduler.JobTypeClosure {
		return nil
	}
	job, err := scheduler.Decode(msg.Value)
	if err != nil {
		w.logger.ErrorContext(ctx, "session_closure_job_discarded",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	res, err := w.RunOnce(ctx, job)
	if err != nil {
		w.logger.ErrorContext(ctx, "session_closure_job_failed",
			"job_id", job.JobID,
			"structure_id", job.StructureID,
			"error", err,
		)
		return err
	}
	w.logger.InfoContext(ctx, "session_closure_job_completed",
		"job_id", job.JobID,
		"structure_id", job.StructureID,
		"requested", res.Requested,
		"closed", res.Closed,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return nil
}

// RunOnce closes the job's sessions at the time they were observed. The
// overlays are stamped as modified when the job runs.
func (w *Worker) RunOnce(ctx context.Context, job scheduler.ClosureJob) (*Result, error) {
	start := time.Now()
	closed, err := w.overlays.CloseMany(ctx, job.StructureID, job.SessionIDs, job.ObservedAt.UTC(), w.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("close sessions for structure %s: %w", job.StructureID, err)
	}
	w.metrics.AddClosuresApplied(closed)
	return &Result{Requested: len(job.SessionIDs), Closed: closed, Duration: time.Since(start)}, nil
}

// Package reconcile turns a counsellor's attendance sheet into the minimal set
// of partner enrollment writes and records the session as closed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"youthsessions/internal/sessions/metrics"
	"youthsessions/internal/sessions/models"
	"youthsessions/pkg/platform/middleware/requesttime"
)

// Gateway is the subset of the partner gateway reconciliation needs.
type Gateway interface {
	SessionWithRoster(ctx context.Context, token, sessionID string) (models.ExternalSession, []models.Enrollment, error)
	Submit(ctx context.Context, token string, session models.ExternalSession, m models.Mutations) error
}

// OverlayStore persists local session state.
type OverlayStore interface {
	Get(ctx context.Context, sessionID string) (models.OptionalOverlay, error)
	Upsert(ctx context.Context, overlay models.Overlay) error
}

// Result describes what a reconciliation did.
type Result struct {
	Mutations models.Mutations
	Overlay   models.Overlay
}

type Reconciler struct {
	gateway  Gateway
	overlays OverlayStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func New(gateway Gateway, overlays OverlayStore, opts ...Option) (*Reconciler, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if overlays == nil {
		return nil, fmt.Errorf("overlay store is required")
	}
	r := &Reconciler{
		gateway:  gateway,
		overlays: overlays,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Reconcile applies an attendance sheet to a session.
//
// The partner is written first and the overlay is closed only once every write
// was accepted. Running it again with the same sheet sends nothing and only
// refreshes the closure timestamp.
func (r *Reconciler) Reconcile(ctx context.Context, token string, structure models.Structure, sessionID string, submissions []models.AttendanceSubmission) (*Result, error) {
	session, roster, err := r.gateway.SessionWithRoster(ctx, token, sessionID)
	if err != nil {
		r.metrics.IncrementReconcileOutcome("failed")
		return nil, err
	}

	mutations, err := Partition(session, roster, submissions)
	if err != nil {
		outcome := "invalid"
		var incomplete *IncompleteAttendanceError
		var full *CapacityExceededError
		switch {
		case errors.As(err, &incomplete):
			outcome = "incomplete"
		case errors.As(err, &full):
			outcome = "over_capacity"
		}
		r.metrics.IncrementReconcileOutcome(outcome)
		return nil, err
	}

	if err := r.gateway.Submit(ctx, token, session, mutations); err != nil {
		r.metrics.IncrementReconcileOutcome("failed")
		return nil, err
	}

	overlay, err := r.closeOverlay(ctx, structure, sessionID)
	if err != nil {
		// The partner already holds the new roster; a retry will diff to nothing.
		r.logger.ErrorContext(ctx, "partner accepted attendance but overlay was not saved",
			"session_id", sessionID,
			"structure_id", structure.ID,
			"error", err,
		)
		r.metrics.IncrementReconcileOutcome("failed")
		return nil, err
	}

	outcome := "applied"
	if mutations.Empty() {
		outcome = "noop"
	}
	r.metrics.IncrementReconcileOutcome(outcome)
	r.logger.InfoContext(ctx, "attendance reconciled",
		"session_id", sessionID,
		"structure_id", structure.ID,
		"registered", len(mutations.ToRegister),
		"modified", len(mutations.ToModify),
		"unchanged", len(mutations.Unchanged),
	)
	return &Result{Mutations: mutations, Overlay: overlay}, nil
}

func (r *Reconciler) closeOverlay(ctx context.Context, structure models.Structure, sessionID string) (models.Overlay, error) {
	existing, err := r.overlays.Get(ctx, sessionID)
	if err != nil {
		return models.Overlay{}, fmt.Errorf("load overlay: %w", err)
	}
	overlay, ok := existing.Get()
	if !ok {
		overlay = models.Overlay{SessionID: sessionID, StructureID: structure.ID}
	}
	now := requesttime.Now(ctx).UTC()
	overlay.ClosedAt = &now
	overlay.ModifiedAt = now
	if err := r.overlays.Upsert(ctx, overlay); err != nil {
		return models.Overlay{}, fmt.Errorf("save overlay: %w", err)
	}
	return overlay, nil
}

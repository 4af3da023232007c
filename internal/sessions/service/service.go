// Package service is the counsellor-facing entry point for partner sessions:
// listing, detail, visibility and attendance.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"youthsessions/internal/sessions/gateway"
	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/reconcile"
	"youthsessions/internal/sessions/scheduler"
	"youthsessions/internal/sessions/view"
	dErrors "youthsessions/pkg/domain-errors"
	"youthsessions/pkg/platform/middleware/requesttime"
)

// Gateway reads partner sessions.
type Gateway interface {
	ListSessions(ctx context.Context, token string, structure models.Structure, q gateway.Query) ([]models.ExternalSession, error)
	GetSession(ctx context.Context, token, sessionID string) (models.ExternalSession, error)
	SessionWithRoster(ctx context.Context, token, sessionID string) (models.ExternalSession, []models.Enrollment, error)
}

// OverlayStore holds local session state.
type OverlayStore interface {
	Get(ctx context.Context, sessionID string) (models.OptionalOverlay, error)
	Upsert(ctx context.Context, overlay models.Overlay) error
	GetMany(ctx context.Context, sessionIDs []string) (map[string]models.Overlay, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, token string, structure models.Structure, sessionID string, submissions []models.AttendanceSubmission) (*reconcile.Result, error)
}

// StructureDirectory resolves the structure a counsellor works for.
// A counsellor without one yields an error wrapping sentinel.ErrNotFound.
type StructureDirectory interface {
	StructureForCounsellor(ctx context.Context, counsellorID string) (models.Structure, error)
}

// TokenExchanger trades the counsellor's access token for a partner token.
type TokenExchanger interface {
	Exchange(ctx context.Context, subjectToken string) (string, error)
}

// ClosureScheduler defers closure of sessions a counsellor saw awaiting closure.
type ClosureScheduler interface {
	ScheduleClosure(ctx context.Context, sessionIDs []string, structureID string, observedAt time.Time) error
}

// CounsellorContext identifies the caller.
type CounsellorContext struct {
	CounsellorID string
	AccessToken  string
}

// ListRequest selects sessions. NeedingClosure ignores the window and keeps only
// sessions awaiting closure.
type ListRequest struct {
	Window         models.Window
	NeedingClosure bool
}

// DetailOptions tunes a detail read.
type DetailOptions struct {
	// ObservedByCounsellor marks a read made by the counsellor looking at the
	// session; one awaiting closure whose roster has no one left ENROLLED is
	// then scheduled for deferred closure.
	ObservedByCounsellor bool
}

// SessionSettings carries the local settings a counsellor changes on a
// session. Nil fields are left as stored.
type SessionSettings struct {
	Visible          *bool
	AutoRegistration *bool
}

type Service struct {
	gateway    Gateway
	overlays   OverlayStore
	reconciler Reconciler
	directory  StructureDirectory
	tokens     TokenExchanger
	scheduler  ClosureScheduler
	logger     *slog.Logger
}

type Option func(*Service)

func WithScheduler(s ClosureScheduler) Option {
	return func(svc *Service) {
		if s != nil {
			svc.scheduler = s
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		if logger != nil {
			svc.logger = logger
		}
	}
}

func New(gw Gateway, overlays OverlayStore, reconciler Reconciler, directory StructureDirectory, tokens TokenExchanger, opts ...Option) (*Service, error) {
	switch {
	case gw == nil:
		return nil, fmt.Errorf("gateway is required")
	case overlays == nil:
		return nil, fmt.Errorf("overlay store is required")
	case reconciler == nil:
		return nil, fmt.Errorf("reconciler is required")
	case directory == nil:
		return nil, fmt.Errorf("structure directory is required")
	case tokens == nil:
		return nil, fmt.Errorf("token exchanger is required")
	}
	svc := &Service{
		gateway:    gw,
		overlays:   overlays,
		reconciler: reconciler,
		directory:  directory,
		tokens:     tokens,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.scheduler == nil {
		svc.scheduler = scheduler.NewLogging(svc.logger)
	}
	return svc, nil
}

// GetSessionsForStructure lists the counsellor's structure sessions merged with local state.
func (s *Service) GetSessionsForStructure(ctx context.Context, cc CounsellorContext, req ListRequest) ([]models.SessionView, error) {
	if !req.NeedingClosure && req.Window.From != nil && req.Window.To != nil && req.Window.From.After(*req.Window.To) {
		return nil, dErrors.New(dErrors.CodeValidation, "window start must not be after its end")
	}
	structure, token, err := s.authorize(ctx, cc)
	if err != nil {
		return nil, err
	}

	sessions, err := s.gateway.ListSessions(ctx, token, structure, gateway.Query{Window: req.Window, NeedingClosure: req.NeedingClosure})
	if err != nil {
		return nil, translate(err, "list sessions")
	}

	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	overlays, err := s.overlays.GetMany(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load session overlays")
	}

	views, err := view.BuildAll(sessions, overlays, structure, requesttime.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build session views")
	}
	if !req.NeedingClosure {
		return views, nil
	}

	pending := make([]models.SessionView, 0, len(views))
	for _, v := range views {
		if v.Status == models.StatusToBeClosed {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// GetSessionDetail returns one session with its roster.
func (s *Service) GetSessionDetail(ctx context.Context, cc CounsellorContext, sessionID string, opts DetailOptions) (models.SessionDetailView, error) {
	structure, token, err := s.authorize(ctx, cc)
	if err != nil {
		return models.SessionDetailView{}, err
	}

	session, roster, err := s.gateway.SessionWithRoster(ctx, token, sessionID)
	if err != nil {
		return models.SessionDetailView{}, translate(err, "get session")
	}
	overlay, err := s.overlays.Get(ctx, sessionID)
	if err != nil {
		return models.SessionDetailView{}, dErrors.Wrap(err, dErrors.CodeInternal, "load session overlay")
	}

	now := requesttime.Now(ctx)
	detail, err := view.BuildDetail(session, roster, overlay, structure, now)
	if err != nil {
		return models.SessionDetailView{}, dErrors.Wrap(err, dErrors.CodeInternal, "build session view")
	}

	// Only a session whose outcomes are all recorded at the partner may be closed
	// on observation; anyone still ENROLLED needs the attendance sheet first.
	if opts.ObservedByCounsellor && detail.Status == models.StatusToBeClosed && models.AttendanceRecorded(detail.Enrollees) {
		if err := s.scheduler.ScheduleClosure(ctx, []string{sessionID}, structure.ID, now); err != nil {
			// The read already succeeded; a lost job only delays closure.
			s.logger.WarnContext(ctx, "closure job not scheduled",
				"session_id", sessionID,
				"structure_id", structure.ID,
				"error", err,
			)
		}
	}
	return detail, nil
}

// ReconcileAttendance records the counsellor's attendance sheet and closes the session.
func (s *Service) ReconcileAttendance(ctx context.Context, cc CounsellorContext, sessionID string, submissions []models.AttendanceSubmission) error {
	structure, token, err := s.authorize(ctx, cc)
	if err != nil {
		return err
	}
	if _, err := s.reconciler.Reconcile(ctx, token, structure, sessionID, submissions); err != nil {
		return translate(err, "reconcile attendance")
	}
	return nil
}

// SetVisibility shows or hides a session to the structure's youths and opens or
// closes it to self-registration. Closure is kept.
func (s *Service) SetVisibility(ctx context.Context, cc CounsellorContext, sessionID string, settings SessionSettings) (models.SessionView, error) {
	structure, token, err := s.authorize(ctx, cc)
	if err != nil {
		return models.SessionView{}, err
	}

	// Read first: an overlay is only ever written for a session the partner has shown us.
	session, err := s.gateway.GetSession(ctx, token, sessionID)
	if err != nil {
		return models.SessionView{}, translate(err, "get session")
	}
	existing, err := s.overlays.Get(ctx, sessionID)
	if err != nil {
		return models.SessionView{}, dErrors.Wrap(err, dErrors.CodeInternal, "load session overlay")
	}

	overlay, ok := existing.Get()
	if !ok {
		overlay = models.Overlay{SessionID: sessionID, StructureID: structure.ID}
	}
	now := requesttime.Now(ctx)
	overlay = overlay.Configure(settings.Visible, settings.AutoRegistration)
	overlay.ModifiedAt = now.UTC()
	if err := s.overlays.Upsert(ctx, overlay); err != nil {
		return models.SessionView{}, dErrors.Wrap(err, dErrors.CodeInternal, "save session overlay")
	}

	s.logger.InfoContext(ctx, "session visibility changed",
		"session_id", sessionID,
		"structure_id", structure.ID,
		"visible", overlay.Visible,
		"auto_registration", overlay.AutoRegistration,
	)
	v, err := view.Build(session, models.SomeOverlay(overlay), structure, now)
	if err != nil {
		return models.SessionView{}, dErrors.Wrap(err, dErrors.CodeInternal, "build session view")
	}
	return v, nil
}

func (s *Service) authorize(ctx context.Context, cc CounsellorContext) (models.Structure, string, error) {
	if cc.CounsellorID == "" {
		return models.Structure{}, "", dErrors.New(dErrors.CodeUnauthorized, "missing counsellor context")
	}
	structure, err := s.directory.StructureForCounsellor(ctx, cc.CounsellorID)
	if err != nil {
		return models.Structure{}, "", translateDirectory(err, cc.CounsellorID)
	}
	token, err := s.tokens.Exchange(ctx, cc.AccessToken)
	if err != nil {
		return models.Structure{}, "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "exchange counsellor token")
	}
	return structure, token, nil
}

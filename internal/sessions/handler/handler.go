// Package handler exposes the counsellor session operations over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/reconcile"
	"youthsessions/internal/sessions/service"
	dErrors "youthsessions/pkg/domain-errors"
	"youthsessions/pkg/platform/httputil"
	"youthsessions/pkg/platform/middleware/auth"
	"youthsessions/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the session service as seen by the transport.
type Service interface {
	GetSessionsForStructure(ctx context.Context, cc service.CounsellorContext, req service.ListRequest) ([]models.SessionView, error)
	GetSessionDetail(ctx context.Context, cc service.CounsellorContext, sessionID string, opts service.DetailOptions) (models.SessionDetailView, error)
	ReconcileAttendance(ctx context.Context, cc service.CounsellorContext, sessionID string, submissions []models.AttendanceSubmission) error
	SetVisibility(ctx context.Context, cc service.CounsellorContext, sessionID string, settings service.SessionSettings) (models.SessionView, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the session routes. Callers wrap r with auth.RequireBearer.
func (h *Handler) Register(r chi.Router) {
	r.Route("/counsellors/{counsellorID}/sessions", func(r chi.Router) {
		r.Get("/", h.HandleListSessions)
		r.Get("/{sessionID}", h.HandleGetSession)
		r.Put("/{sessionID}/visibility", h.HandleSetVisibility)
		r.Post("/{sessionID}/attendance", h.HandleReconcileAttendance)
	})
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	query, err := parseListQuery(r.URL.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "invalid session listing query",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	views, err := h.service.GetSessionsForStructure(ctx, counsellor(r), query)
	if err != nil {
		h.logFailure(ctx, "failed to list sessions", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Sessions: toSessionResponses(views)})
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts := service.DetailOptions{ObservedByCounsellor: r.URL.Query().Get("observed") == "true"}

	detail, err := h.service.GetSessionDetail(ctx, counsellor(r), chi.URLParam(r, "sessionID"), opts)
	if err != nil {
		h.logFailure(ctx, "failed to get session", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (h *Handler) HandleSetVisibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[VisibilityRequest](w, r, h.logger)
	if !ok {
		return
	}

	settings := service.SessionSettings{Visible: req.Visible, AutoRegistration: req.AutoRegistration}
	v, err := h.service.SetVisibility(ctx, counsellor(r), chi.URLParam(r, "sessionID"), settings)
	if err != nil {
		h.logFailure(ctx, "failed to set session visibility", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(v))
}

func (h *Handler) HandleReconcileAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AttendanceRequest](w, r, h.logger)
	if !ok {
		return
	}

	err := h.service.ReconcileAttendance(ctx, counsellor(r), chi.URLParam(r, "sessionID"), req.Submissions())
	if err != nil {
		h.logFailure(ctx, "failed to reconcile attendance", err)
		var incomplete *reconcile.IncompleteAttendanceError
		if errors.As(err, &incomplete) {
			httputil.WriteErrorWithDetails(w, err, IncompleteDetails{Missing: incomplete.Missing})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func counsellor(r *http.Request) service.CounsellorContext {
	return service.CounsellorContext{
		CounsellorID: chi.URLParam(r, "counsellorID"),
		AccessToken:  auth.GetAccessToken(r.Context()),
	}
}

// logFailure logs client-side failures at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	args := []any{"request_id", request.GetRequestID(ctx), "error", err}
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, args...)
		return
	}
	h.logger.ErrorContext(ctx, msg, args...)
}

// Package gateway aggregates partner session data for a structure.
//
// It owns pagination of session listings, roster resolution to local
// individuals and the ordering of enrollment writes. Every partner call
// first waits on the rate gate of its endpoint family.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"youthsessions/internal/platform/tracer"
	"youthsessions/internal/sessions/metrics"
	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/partner"
	"youthsessions/pkg/platform/circuit"
)

// PartnerAPI is the raw partner client.
type PartnerAPI interface {
	ListSessions(ctx context.Context, token, structureID string, opts partner.ListOptions) (*partner.SessionPage, error)
	GetSession(ctx context.Context, token, sessionID string) (*partner.SessionDetailDTO, error)
	ListEnrollments(ctx context.Context, token, sessionID string) ([]partner.EnrolleeDTO, error)
	CreateEnrollment(ctx context.Context, token, sessionID, dossierID string) error
	UpdateEnrollment(ctx context.Context, token string, update partner.EnrollmentUpdate) error
	DeleteEnrollment(ctx context.Context, token string, ref partner.EnrollmentRef) error
}

// IdentityResolver maps between local individual ids and partner dossier ids.
type IdentityResolver interface {
	// LocalIDsByPartnerID returns the local id for every partner id that is known locally.
	LocalIDsByPartnerID(ctx context.Context, partnerIDs []string) (map[string]string, error)
	// PartnerIDsByLocalID returns the partner id for every local id that has one.
	PartnerIDsByLocalID(ctx context.Context, localIDs []string) (map[string]string, error)
}

// Turnstile is satisfied by *gate.Gate.
type Turnstile interface {
	AwaitTurn(ctx context.Context) error
}

// Gates holds one turnstile per quota-constrained endpoint family.
type Gates struct {
	Listing Turnstile
	Detail  Turnstile
	Write   Turnstile
}

// DefaultRolloutDate is the earliest day sessions can need closing.
var DefaultRolloutDate = time.Date(2023, time.August, 1, 0, 0, 0, 0, time.UTC)

// Query selects the sessions to list.
type Query struct {
	Window models.Window
	// NeedingClosure replaces the window with [rollout date, open).
	NeedingClosure bool
}

// Gateway is the partner session gateway.
type Gateway struct {
	api         PartnerAPI
	identities  IdentityResolver
	gates       Gates
	tracer      tracer.Tracer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	rolloutDate time.Time
	breaker     *circuit.Breaker
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = t
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithBreaker replaces the default partner outage breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(g *Gateway) {
		if b != nil {
			g.breaker = b
		}
	}
}

// WithRolloutDate overrides the lower bound used for sessions needing closure.
func WithRolloutDate(d time.Time) Option {
	return func(g *Gateway) {
		g.rolloutDate = d
	}
}

func New(api PartnerAPI, identities IdentityResolver, gates Gates, opts ...Option) (*Gateway, error) {
	if api == nil {
		return nil, fmt.Errorf("partner api is required")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}
	if gates.Listing == nil || gates.Detail == nil || gates.Write == nil {
		return nil, fmt.Errorf("listing, detail and write gates are required")
	}
	g := &Gateway{
		api:         api,
		identities:  identities,
		gates:       gates,
		tracer:      tracer.NewNoop(),
		logger:      slog.Default(),
		rolloutDate: DefaultRolloutDate,
		breaker:     circuit.New("partner"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ListSessions returns every session of the structure matching the query, in partner order.
// A failure on any page aborts the whole listing.
func (g *Gateway) ListSessions(ctx context.Context, token string, structure models.Structure, q Query) ([]models.ExternalSession, error) {
	loc, err := structure.Location()
	if err != nil {
		return nil, err
	}

	mode := "window"
	opts := partner.ListOptions{}
	if q.NeedingClosure {
		mode = "needing_closure"
		opts.From = localDate(g.rolloutDate, loc)
	} else {
		if q.Window.From != nil {
			opts.From = localDate(*q.Window.From, loc)
		}
		if q.Window.To != nil {
			opts.To = localDate(*q.Window.To, loc)
		}
	}

	it := newPageIterator(func(ctx context.Context, page int) (*partner.SessionPage, error) {
		ctx, span := g.tracer.Start(ctx, "partner.list_sessions.page",
			tracer.String("structure_id", structure.ID),
			tracer.String("mode", mode),
			tracer.Int("page", page),
		)
		if err := g.gates.Listing.AwaitTurn(ctx); err != nil {
			span.End(err)
			return nil, err
		}
		pageOpts := opts
		pageOpts.Page = page
		result, err := g.api.ListSessions(ctx, token, structure.ID, pageOpts)
		if err != nil {
			g.recordFailure(ctx, "list_sessions", err)
			span.End(err)
			return nil, err
		}
		g.recordSuccess(ctx)
		g.metrics.IncrementPagesFetched(mode)
		span.SetAttributes(tracer.Int("total", result.TotalCount), tracer.Int("count", len(result.Sessions)))
		span.End(nil)
		return result, nil
	})

	var sessions []models.ExternalSession
	for it.Next(ctx) {
		for _, dto := range it.Sessions() {
			sessions = append(sessions, g.toExternalSession(ctx, dto))
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "partner sessions listed",
		"structure_id", structure.ID,
		"mode", mode,
		"pages", it.Fetched(),
		"sessions", len(sessions),
	)
	return sessions, nil
}

// GetSession fetches one session's partner record.
func (g *Gateway) GetSession(ctx context.Context, token, sessionID string) (models.ExternalSession, error) {
	if err := g.gates.Detail.AwaitTurn(ctx); err != nil {
		return models.ExternalSession{}, err
	}
	dto, err := g.api.GetSession(ctx, token, sessionID)
	if err != nil {
		g.recordFailure(ctx, "get_session", err)
		return models.ExternalSession{}, err
	}
	g.recordSuccess(ctx)
	return g.toExternalSession(ctx, *dto), nil
}

// Roster lists a session's enrollments, keeping only individuals known locally.
func (g *Gateway) Roster(ctx context.Context, token, sessionID string) ([]models.Enrollment, error) {
	if err := g.gates.Detail.AwaitTurn(ctx); err != nil {
		return nil, err
	}
	dtos, err := g.api.ListEnrollments(ctx, token, sessionID)
	if err != nil {
		g.recordFailure(ctx, "list_enrollments", err)
		return nil, err
	}
	g.recordSuccess(ctx)
	if len(dtos) == 0 {
		return []models.Enrollment{}, nil
	}

	partnerIDs := make([]string, 0, len(dtos))
	for _, dto := range dtos {
		partnerIDs = append(partnerIDs, formatID(dto.DossierID))
	}
	localIDs, err := g.identities.LocalIDsByPartnerID(ctx, partnerIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve roster identities: %w", err)
	}

	roster := make([]models.Enrollment, 0, len(dtos))
	for _, dto := range dtos {
		dossierID := formatID(dto.DossierID)
		localID, ok := localIDs[dossierID]
		if !ok {
			continue
		}
		roster = append(roster, models.Enrollment{
			SessionID:           sessionID,
			IndividualID:        localID,
			PartnerIndividualID: dossierID,
			EnrollmentID:        formatID(dto.SessionInstanceID),
			FirstName:           dto.FirstName,
			LastName:            dto.LastName,
			Status:              g.statusFromPartner(ctx, dto),
		})
	}
	return roster, nil
}

// SessionWithRoster fetches a session and its roster concurrently. Either failure fails both.
func (g *Gateway) SessionWithRoster(ctx context.Context, token, sessionID string) (models.ExternalSession, []models.Enrollment, error) {
	var (
		session models.ExternalSession
		roster  []models.Enrollment
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		session, err = g.GetSession(egCtx, token, sessionID)
		return err
	})
	eg.Go(func() error {
		var err error
		roster, err = g.Roster(egCtx, token, sessionID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return models.ExternalSession{}, nil, err
	}
	return session, roster, nil
}

// PartnerDegraded reports whether the partner is in an outage.
func (g *Gateway) PartnerDegraded() bool {
	return g.breaker.IsOpen()
}

// recordFailure counts the failure. Only outages open the breaker; a refusal
// or a 404 proves the partner is up.
func (g *Gateway) recordFailure(ctx context.Context, endpoint string, err error) {
	category := partner.CategoryOf(err)
	g.metrics.IncrementPartnerFailure(endpoint, string(category))
	switch category {
	case partner.CategoryRejected, partner.CategoryNotFound:
		g.recordSuccess(ctx)
		return
	case partner.CategoryUnavailable:
	default:
		return
	}
	if g.breaker.RecordFailure() == circuit.Opened {
		g.metrics.SetPartnerCircuitOpen(true)
		g.logger.WarnContext(ctx, "partner circuit opened",
			"breaker", g.breaker.Name(),
			"endpoint", endpoint,
			"error", err,
		)
	}
}

func (g *Gateway) recordSuccess(ctx context.Context) {
	if g.breaker.RecordSuccess() == circuit.Closed {
		g.metrics.SetPartnerCircuitOpen(false)
		g.logger.InfoContext(ctx, "partner circuit closed", "breaker", g.breaker.Name())
	}
}

func localDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(models.DateLayout)
}

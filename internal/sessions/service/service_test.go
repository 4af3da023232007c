package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identitystore "youthsessions/internal/identity/store"
	"youthsessions/internal/sentinel"
	"youthsessions/internal/sessions/gateway"
	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/partner"
	"youthsessions/internal/sessions/reconcile"
	"youthsessions/internal/sessions/scheduler"
	"youthsessions/internal/sessions/store"
	"youthsessions/internal/sessions/workers/closure"
	dErrors "youthsessions/pkg/domain-errors"
	"youthsessions/pkg/platform/middleware/requesttime"
)

type stubGateway struct {
	sessions  map[string]models.ExternalSession
	rosters   map[string][]models.Enrollment
	err       error
	lastQuery gateway.Query
	lastToken string
}

func (g *stubGateway) ListSessions(_ context.Context, token string, _ models.Structure, q gateway.Query) ([]models.ExternalSession, error) {
	g.lastToken = token
	g.lastQuery = q
	if g.err != nil {
		return nil, g.err
	}
	out := make([]models.ExternalSession, 0, len(g.sessions))
	for _, id := range []string{"1", "2", "3"} {
		if s, ok := g.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (g *stubGateway) GetSession(_ context.Context, token, sessionID string) (models.ExternalSession, error) {
	g.lastToken = token
	if g.err != nil {
		return models.ExternalSession{}, g.err
	}
	s, ok := g.sessions[sessionID]
	if !ok {
		return models.ExternalSession{}, &partner.Error{Category: partner.CategoryNotFound, Endpoint: "session", Status: 404}
	}
	return s, nil
}

func (g *stubGateway) SessionWithRoster(ctx context.Context, token, sessionID string) (models.ExternalSession, []models.Enrollment, error) {
	s, err := g.GetSession(ctx, token, sessionID)
	if err != nil {
		return models.ExternalSession{}, nil, err
	}
	return s, g.rosters[sessionID], nil
}

type stubReconciler struct {
	calls int
	err   error
}

func (r *stubReconciler) Reconcile(_ context.Context, _ string, _ models.Structure, _ string, _ []models.AttendanceSubmission) (*reconcile.Result, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &reconcile.Result{}, nil
}

type stubExchanger struct {
	err error
}

func (e *stubExchanger) Exchange(_ context.Context, subject string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "partner-" + subject, nil
}

type recordingScheduler struct {
	mu   sync.Mutex
	jobs [][]string
	err  error
}

func (r *recordingScheduler) ScheduleClosure(_ context.Context, ids []string, _ string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, ids)
	return r.err
}

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	gateway    *stubGateway
	overlays   *store.InMemoryStore
	reconciler *stubReconciler
	exchanger  *stubExchanger
	scheduler  *recordingScheduler
	service    *Service
	counsellor CounsellorContext
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	s.ctx = requesttime.WithTime(context.Background(), s.now)
	s.gateway = &stubGateway{
		sessions: map[string]models.ExternalSession{
			// Paris is UTC+1: session 1 ended at 10:00 UTC, session 2 ends tomorrow.
			"1": {ID: "1", Title: "Atelier CV", Start: "2024-03-05 09:00:00", End: "2024-03-05 11:00:00"},
			"2": {ID: "2", Title: "Job dating", Start: "2024-03-06 09:00:00", End: "2024-03-06 11:00:00"},
		},
		rosters: map[string][]models.Enrollment{
			"1": {{SessionID: "1", IndividualID: "A", Status: models.EnrollmentEnrolled}},
		},
	}
	s.overlays = store.NewInMemory()
	s.reconciler = &stubReconciler{}
	s.exchanger = &stubExchanger{}
	s.scheduler = &recordingScheduler{}

	directory := identitystore.NewInMemory()
	s.Require().NoError(directory.SaveCounsellor(context.Background(),
		identitystore.Counsellor{ID: "c-1", StructureID: "S1", Timezone: "Europe/Paris"}))

	svc, err := New(s.gateway, s.overlays, s.reconciler, directory, s.exchanger, WithScheduler(s.scheduler))
	s.Require().NoError(err)
	s.service = svc
	s.counsellor = CounsellorContext{CounsellorID: "c-1", AccessToken: "tok"}
}

func (s *ServiceSuite) TestNewValidatesDependencies() {
	_, err := New(nil, s.overlays, s.reconciler, identitystore.NewInMemory(), s.exchanger)
	s.Error(err)
	_, err = New(s.gateway, s.overlays, s.reconciler, identitystore.NewInMemory(), nil)
	s.Error(err)
}

func (s *ServiceSuite) TestListMergesOverlaysAndDerivesStatus() {
	closed := s.now.Add(-time.Hour)
	s.Require().NoError(s.overlays.Upsert(s.ctx, models.Overlay{SessionID: "2", StructureID: "S1", Visible: true, ModifiedAt: closed}))

	views, err := s.service.GetSessionsForStructure(s.ctx, s.counsellor, ListRequest{})
	s.Require().NoError(err)
	s.Require().Len(views, 2)

	s.Equal("1", views[0].ID)
	s.False(views[0].Visible)
	s.Equal(models.StatusToBeClosed, views[0].Status)
	s.True(views[1].Visible)
	s.Equal(models.StatusUpcoming, views[1].Status)
	s.Equal("partner-tok", s.gateway.lastToken)
}

func (s *ServiceSuite) TestListNeedingClosureKeepsOnlyPending() {
	closed := s.now.Add(-time.Minute)
	s.gateway.sessions["3"] = models.ExternalSession{ID: "3", Start: "2024-03-04 09:00:00", End: "2024-03-04 11:00:00"}
	s.Require().NoError(s.overlays.Upsert(s.ctx, models.Overlay{SessionID: "3", StructureID: "S1", ClosedAt: &closed}))

	views, err := s.service.GetSessionsForStructure(s.ctx, s.counsellor, ListRequest{NeedingClosure: true})
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal("1", views[0].ID)
	s.True(s.gateway.lastQuery.NeedingClosure)
}

func (s *ServiceSuite) TestListRejectsInvertedWindow() {
	from, to := s.now, s.now.Add(-time.Hour)
	_, err := s.service.GetSessionsForStructure(s.ctx, s.counsellor, ListRequest{Window: models.Window{From: &from, To: &to}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestMissingStructure() {
	_, err := s.service.GetSessionsForStructure(s.ctx, CounsellorContext{CounsellorID: "ghost", AccessToken: "tok"}, ListRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeMissingStructure))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestTokenExchangeFailureIsUnauthorized() {
	s.exchanger.err = errors.New("idp down")
	_, err := s.service.GetSessionDetail(s.ctx, s.counsellor, "1", DetailOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.exchanger.err = dErrors.New(dErrors.CodeUpstreamUnavailable, "idp unavailable")
	_, err = s.service.GetSessionDetail(s.ctx, s.counsellor, "1", DetailOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable))
}

func (s *ServiceSuite) TestDetailSchedulesClosureOnlyOnceAttendanceIsRecorded() {
	cases := []struct {
		name      string
		roster    []models.Enrollment
		scheduled bool
	}{
		{"enrollee still enrolled", []models.Enrollment{
			{SessionID: "1", IndividualID: "A", Status: models.EnrollmentEnrolled},
		}, false},
		{"one of several still enrolled", []models.Enrollment{
			{SessionID: "1", IndividualID: "A", Status: models.EnrollmentPresent},
			{SessionID: "1", IndividualID: "B", Status: models.EnrollmentEnrolled},
		}, false},
		{"every outcome recorded", []models.Enrollment{
			{SessionID: "1", IndividualID: "A", Status: models.EnrollmentPresent},
			{SessionID: "1", IndividualID: "B", Status: models.EnrollmentRefusedByYouth},
			{SessionID: "1", IndividualID: "C", Status: models.EnrollmentRefusedByThirdParty},
		}, true},
		{"nobody enrolled", nil, true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.scheduler.jobs = nil
			s.gateway.rosters["1"] = tc.roster

			d, err := s.service.GetSessionDetail(s.ctx, s.counsellor, "1", DetailOptions{ObservedByCounsellor: true})
			s.Require().NoError(err)
			s.Equal(models.StatusToBeClosed, d.Status)
			if tc.scheduled {
				s.Equal([][]string{{"1"}}, s.scheduler.jobs)
			} else {
				s.Empty(s.scheduler.jobs)
			}
		})
	}
}

func (s *ServiceSuite) TestDetailSchedulesNothingWhenUnobservedOrUpcoming() {
	s.gateway.rosters["1"] = []models.Enrollment{{SessionID: "1", IndividualID: "A", Status: models.EnrollmentPresent}}

	_, err := s.service.GetSessionDetail(s.ctx, s.counsellor, "1", DetailOptions{})
	s.Require().NoError(err)
	_, err = s.service.GetSessionDetail(s.ctx, s.counsellor, "2", DetailOptions{ObservedByCounsellor: true})
	s.Require().NoError(err)
	s.Empty(s.scheduler.jobs)
}

func (s *ServiceSuite) TestObservedReadKeepsUnrecordedSessionPending() {
	worker, err := closure.New(s.overlays)
	s.Require().NoError(err)

	_, err = s.service.GetSessionDetail(s.ctx, s.counsellor, "1", DetailOptions{ObservedByCounsellor: true})
	s.Require().NoError(err)
	for _, ids := range s.scheduler.jobs {
		_, err := worker.RunOnce(s.ctx, scheduler.ClosureJob{SessionIDs: ids, StructureID: "S1", ObservedAt: s.now})
		s.Require().NoError(err)
	}

	pending, err := s.service.GetSessionsForStructure(s.ctx, s.counsellor, ListRequest{NeedingClosure: true})
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("1", pending[0].ID)
	s.Equal(models.StatusToBeClosed, pending[0].Status)
}

func (s *ServiceSuite) TestDetailSurvivesSchedulerFailure() {
	s.scheduler.err = errors.New("broker down")
	d, err := s.service.GetSessionDetail(s.ctx, s.counsellor, "1", DetailOptions{ObservedByCounsellor: true})
	s.Require().NoError(err)
	s.Equal("1", d.ID)
}

func (s *ServiceSuite) TestPartnerErrorsAreTranslated() {
	cases := []struct {
		name string
		err  error
		code dErrors.Code
	}{
		{"not found", &partner.Error{Category: partner.CategoryNotFound}, dErrors.CodeNotFound},
		{"unavailable", &partner.Error{Category: partner.CategoryUnavailable}, dErrors.CodeUpstreamUnavailable},
		{"contract mismatch", &partner.Error{Category: partner.CategoryContractMismatch}, dErrors.CodeUpstreamUnavailable},
		{"rejected", &partner.Error{Category: partner.CategoryRejected, Message: "session full"}, dErrors.CodeUpstreamRejected},
		{"gate timeout", context.DeadlineExceeded, dErrors.CodeUpstreamUnavailable},
		{"anything else", errors.New("boom"), dErrors.CodeInternal},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.gateway.err = tc.err
			_, err := s.service.GetSessionsForStructure(s.ctx, s.counsellor, ListRequest{})
			s.Equal(tc.code, dErrors.CodeOf(err))
		})
	}

	s.gateway.err = &partner.Error{Category: partner.CategoryRejected, Message: "session full"}
	_, err := s.service.GetSessionDetail(s.ctx, s.counsellor, "1", DetailOptions{})
	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal("session full", de.Message)
}

func (s *ServiceSuite) TestUnavailableMessageCarriesPartnerStatus() {
	s.gateway.err = &partner.Error{Category: partner.CategoryUnavailable, Status: 503}
	_, err := s.service.GetSessionsForStructure(s.ctx, s.counsellor, ListRequest{})
	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Contains(de.Message, "partner unavailable (status 503)")

	// Transport failures have no status to report.
	s.gateway.err = &partner.Error{Category: partner.CategoryUnavailable, Underlying: errors.New("connection refused")}
	_, err = s.service.GetSessionsForStructure(s.ctx, s.counsellor, ListRequest{})
	s.Require().ErrorAs(err, &de)
	s.True(strings.HasSuffix(de.Message, "partner unavailable"), de.Message)
}

func (s *ServiceSuite) TestReconcileTranslatesErrors() {
	s.Require().NoError(s.service.ReconcileAttendance(s.ctx, s.counsellor, "1", nil))
	s.Equal(1, s.reconciler.calls)

	s.Run("incomplete sheet keeps its code and detail", func() {
		s.reconciler.err = &reconcile.IncompleteAttendanceError{SessionID: "1", Missing: []string{"A"}}
		err := s.service.ReconcileAttendance(s.ctx, s.counsellor, "1", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeIncompleteAttendance))
		var incomplete *reconcile.IncompleteAttendanceError
		s.Require().ErrorAs(err, &incomplete)
		s.Equal([]string{"A"}, incomplete.Missing)
	})

	s.Run("individual without dossier is a validation error", func() {
		s.reconciler.err = errors.Join(errors.New("individual N has no partner dossier"), sentinel.ErrNotFound)
		err := s.service.ReconcileAttendance(s.ctx, s.counsellor, "1", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestSetVisibilityPreservesClosure() {
	closed := s.now.Add(-time.Hour)
	s.Require().NoError(s.overlays.Upsert(s.ctx, models.Overlay{SessionID: "1", StructureID: "S1", ClosedAt: &closed}))

	v, err := s.service.SetVisibility(s.ctx, s.counsellor, "1", SessionSettings{Visible: boolPtr(true)})
	s.Require().NoError(err)
	s.True(v.Visible)
	s.Equal(models.StatusClosed, v.Status)
	s.Require().NotNil(v.ClosedAt)
	s.True(closed.Equal(*v.ClosedAt))

	stored, err := s.overlays.Get(s.ctx, "1")
	s.Require().NoError(err)
	o, ok := stored.Get()
	s.Require().True(ok)
	s.True(o.Visible)
	s.True(closed.Equal(*o.ClosedAt))
	s.True(s.now.Equal(o.ModifiedAt))
}

func (s *ServiceSuite) TestSetVisibilityCreatesOverlay() {
	v, err := s.service.SetVisibility(s.ctx, s.counsellor, "2", SessionSettings{Visible: boolPtr(true)})
	s.Require().NoError(err)
	s.True(v.Visible)
	s.Equal(models.StatusUpcoming, v.Status)

	stored, err := s.overlays.Get(s.ctx, "2")
	s.Require().NoError(err)
	o, ok := stored.Get()
	s.Require().True(ok)
	s.Equal("S1", o.StructureID)
}

func (s *ServiceSuite) TestSetVisibilityOnUnknownSessionWritesNothing() {
	_, err := s.service.SetVisibility(s.ctx, s.counsellor, "missing", SessionSettings{Visible: boolPtr(true)})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	stored, err := s.overlays.Get(s.ctx, "missing")
	s.Require().NoError(err)
	s.False(stored.Present())
}

func (s *ServiceSuite) TestAutoRegistrationKeepsSessionVisible() {
	v, err := s.service.SetVisibility(s.ctx, s.counsellor, "2", SessionSettings{AutoRegistration: boolPtr(true)})
	s.Require().NoError(err)
	s.True(v.AutoRegistration)
	s.True(v.Visible)

	v, err = s.service.SetVisibility(s.ctx, s.counsellor, "2", SessionSettings{Visible: boolPtr(false)})
	s.Require().NoError(err)
	s.True(v.Visible, "a self-registration session cannot be hidden")

	v, err = s.service.SetVisibility(s.ctx, s.counsellor, "2", SessionSettings{Visible: boolPtr(false), AutoRegistration: boolPtr(false)})
	s.Require().NoError(err)
	s.False(v.AutoRegistration)
	s.False(v.Visible)

	stored, err := s.overlays.Get(s.ctx, "2")
	s.Require().NoError(err)
	o, ok := stored.Get()
	s.Require().True(ok)
	s.False(o.AutoRegistration)
	s.False(o.Visible)
}

func boolPtr(b bool) *bool { return &b }

package gateway

import (
	"context"
	"fmt"
	"sort"
	"time"

	"youthsessions/internal/platform/tracer"
	"youthsessions/internal/sentinel"
	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/partner"
)

// Submit sends a mutation set to the partner as one logical call.
// Removals go first, then status changes with re-enrolments last, then registrations.
// The first failing write aborts the rest; writes already accepted are not undone.
func (g *Gateway) Submit(ctx context.Context, token string, session models.ExternalSession, m models.Mutations) (err error) {
	if m.Empty() {
		return nil
	}
	ctx, span := g.tracer.Start(ctx, "partner.submit_enrollments",
		tracer.String("session_id", session.ID),
		tracer.Int("to_register", len(m.ToRegister)),
		tracer.Int("to_modify", len(m.ToModify)),
		tracer.Int("to_remove", len(m.ToRemove)),
	)
	defer func() { span.End(err) }()

	dossiers, err := g.dossiersForRegistration(ctx, m.ToRegister)
	if err != nil {
		return err
	}

	for _, e := range m.ToRemove {
		if err := g.write(ctx, "delete_enrollment", func() error {
			return g.api.DeleteEnrollment(ctx, token, partner.EnrollmentRef{
				DossierID:         e.PartnerIndividualID,
				SessionInstanceID: e.EnrollmentID,
			})
		}); err != nil {
			return err
		}
	}
	g.metrics.AddMutations("remove", len(m.ToRemove))

	updates, err := buildUpdates(session, m.ToModify)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if err := g.write(ctx, "update_enrollment", func() error {
			return g.api.UpdateEnrollment(ctx, token, u)
		}); err != nil {
			return err
		}
	}
	g.metrics.AddMutations("modify", len(updates))

	for _, sub := range m.ToRegister {
		dossierID := dossiers[sub.IndividualID]
		if err := g.write(ctx, "create_enrollment", func() error {
			return g.api.CreateEnrollment(ctx, token, session.ID, dossierID)
		}); err != nil {
			return err
		}
	}
	g.metrics.AddMutations("register", len(m.ToRegister))

	g.logger.InfoContext(ctx, "enrollment mutations submitted",
		"session_id", session.ID,
		"removed", len(m.ToRemove),
		"modified", len(updates),
		"registered", len(m.ToRegister),
	)
	return nil
}

func (g *Gateway) write(ctx context.Context, endpoint string, call func() error) error {
	if err := g.gates.Write.AwaitTurn(ctx); err != nil {
		return err
	}
	if err := call(); err != nil {
		g.recordFailure(ctx, endpoint, err)
		return err
	}
	g.recordSuccess(ctx)
	return nil
}

func (g *Gateway) dossiersForRegistration(ctx context.Context, subs []models.AttendanceSubmission) (map[string]string, error) {
	if len(subs) == 0 {
		return nil, nil
	}
	localIDs := make([]string, 0, len(subs))
	for _, s := range subs {
		localIDs = append(localIDs, s.IndividualID)
	}
	dossiers, err := g.identities.PartnerIDsByLocalID(ctx, localIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve partner dossiers: %w", err)
	}
	for _, id := range localIDs {
		if _, ok := dossiers[id]; !ok {
			return nil, fmt.Errorf("individual %s has no partner dossier: %w", id, sentinel.ErrNotFound)
		}
	}
	return dossiers, nil
}

// buildUpdates converts status changes to partner updates, moving re-enrolments last.
func buildUpdates(session models.ExternalSession, changes []models.EnrollmentChange) ([]partner.EnrollmentUpdate, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	ordered := make([]models.EnrollmentChange, len(changes))
	copy(ordered, changes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Status != models.EnrollmentEnrolled && ordered[j].Status == models.EnrollmentEnrolled
	})

	updates := make([]partner.EnrollmentUpdate, 0, len(ordered))
	for _, c := range ordered {
		code, err := statusToPartner(c.Status)
		if err != nil {
			return nil, err
		}
		u := partner.EnrollmentUpdate{
			EnrollmentRef: partner.EnrollmentRef{
				DossierID:         c.Enrollment.PartnerIndividualID,
				SessionInstanceID: c.Enrollment.EnrollmentID,
			},
			Status: code,
		}
		switch c.Status {
		case models.EnrollmentRefusedByYouth:
			u.Comment = c.Reason
		case models.EnrollmentPresent:
			start, err := sessionStartDate(session)
			if err != nil {
				return nil, err
			}
			u.ActualStartDate = start
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// sessionStartDate is the session's local start day, sent as the actual start of an attendance.
func sessionStartDate(session models.ExternalSession) (string, error) {
	start, err := time.Parse(models.CivilLayout, session.Start)
	if err != nil {
		return "", fmt.Errorf("session %s: parse start %q: %w", session.ID, session.Start, err)
	}
	return start.Format(models.DateLayout), nil
}

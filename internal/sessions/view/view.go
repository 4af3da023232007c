// Package view merges partner sessions with local overlays into counsellor views.
// Everything here is pure: callers pass "now" and the structure explicitly.
package view

import (
	"fmt"
	"time"

	"youthsessions/internal/sessions/models"
)

// DeriveStatus classifies a session. A recorded closure always wins; otherwise a
// session is upcoming until its end has passed.
func DeriveStatus(end time.Time, closedAt *time.Time, now time.Time) models.LifecycleStatus {
	if closedAt != nil {
		return models.StatusClosed
	}
	if end.After(now) {
		return models.StatusUpcoming
	}
	return models.StatusToBeClosed
}

// LocalizeCivil interprets a partner wall-clock value in loc and returns it in UTC.
func LocalizeCivil(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(models.CivilLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse civil time %q: %w", value, err)
	}
	return t.UTC(), nil
}

// EndOfLocalDay returns the last instant of a calendar date in loc, in UTC.
func EndOfLocalDay(date string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return day.AddDate(0, 0, 1).Add(-time.Millisecond).UTC(), nil
}

// Build produces the counsellor view of one session.
func Build(session models.ExternalSession, overlay models.OptionalOverlay, structure models.Structure, now time.Time) (models.SessionView, error) {
	loc, err := structure.Location()
	if err != nil {
		return models.SessionView{}, err
	}
	start, err := LocalizeCivil(session.Start, loc)
	if err != nil {
		return models.SessionView{}, fmt.Errorf("session %s start: %w", session.ID, err)
	}
	end, err := LocalizeCivil(session.End, loc)
	if err != nil {
		return models.SessionView{}, fmt.Errorf("session %s end: %w", session.ID, err)
	}

	var deadline *time.Time
	if session.RegistrationDeadline != "" {
		d, err := EndOfLocalDay(session.RegistrationDeadline, loc)
		if err != nil {
			return models.SessionView{}, fmt.Errorf("session %s registration deadline: %w", session.ID, err)
		}
		deadline = &d
	}

	state := models.ApplyDefaults(overlay)
	return models.SessionView{
		ID:                   session.ID,
		Title:                session.Title,
		Offer:                session.Offer,
		Start:                start,
		End:                  end,
		RegistrationDeadline: deadline,
		Capacity:             session.Capacity,
		Comment:              session.Comment,
		Animator:             session.Animator,
		Location:             session.Location,
		Visible:              state.Visible,
		AutoRegistration:     state.AutoRegistration,
		ClosedAt:             state.ClosedAt,
		Status:               DeriveStatus(end, state.ClosedAt, now),
	}, nil
}

// BuildDetail is Build plus the resolved roster.
func BuildDetail(session models.ExternalSession, roster []models.Enrollment, overlay models.OptionalOverlay, structure models.Structure, now time.Time) (models.SessionDetailView, error) {
	v, err := Build(session, overlay, structure, now)
	if err != nil {
		return models.SessionDetailView{}, err
	}
	if roster == nil {
		roster = []models.Enrollment{}
	}
	return models.SessionDetailView{SessionView: v, Enrollees: roster}, nil
}

// BuildAll builds views for a listing, pairing each session with its overlay by id.
func BuildAll(sessions []models.ExternalSession, overlays map[string]models.Overlay, structure models.Structure, now time.Time) ([]models.SessionView, error) {
	views := make([]models.SessionView, 0, len(sessions))
	for _, s := range sessions {
		overlay := models.NoOverlay()
		if o, ok := overlays[s.ID]; ok {
			overlay = models.SomeOverlay(o)
		}
		v, err := Build(s, overlay, structure, now)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/service"
	dErrors "youthsessions/pkg/domain-errors"
	"youthsessions/pkg/platform/validation"
	v "youthsessions/pkg/validation"
)

type VisibilityRequest struct {
	Visible          *bool `json:"visible" validate:"required_without=AutoRegistration"`
	AutoRegistration *bool `json:"autoRegistration"`
}

func (r *VisibilityRequest) Validate() error {
	return v.Validate(r)
}

type AttendanceEntry struct {
	IndividualID string `json:"individualId" validate:"required,notblank"`
	Status       string `json:"status" validate:"required,oneof=ENROLLED PRESENT REFUSED_BY_THIRD_PARTY REFUSED_BY_YOUTH"`
	Reason       string `json:"reason"`
}

type AttendanceRequest struct {
	Attendances []AttendanceEntry `json:"attendances" validate:"required,dive"`
}

func (r *AttendanceRequest) Sanitize() {
	for i := range r.Attendances {
		r.Attendances[i].IndividualID = strings.TrimSpace(r.Attendances[i].IndividualID)
		r.Attendances[i].Status = strings.TrimSpace(r.Attendances[i].Status)
		r.Attendances[i].Reason = strings.TrimSpace(r.Attendances[i].Reason)
	}
}

func (r *AttendanceRequest) Validate() error {
	if err := validation.CheckSliceCount("attendances", len(r.Attendances), validation.MaxAttendances); err != nil {
		return err
	}
	if err := v.Validate(r); err != nil {
		return err
	}
	for _, a := range r.Attendances {
		if err := validation.CheckStringLength("individual_id", a.IndividualID, validation.MaxIndividualIDLength); err != nil {
			return err
		}
		if err := validation.CheckStringLength("reason", a.Reason, validation.MaxReasonLength); err != nil {
			return err
		}
	}
	return nil
}

// Submissions converts the validated sheet to domain submissions.
func (r *AttendanceRequest) Submissions() []models.AttendanceSubmission {
	out := make([]models.AttendanceSubmission, 0, len(r.Attendances))
	for _, a := range r.Attendances {
		out = append(out, models.AttendanceSubmission{
			IndividualID: a.IndividualID,
			Status:       models.EnrollmentStatus(a.Status),
			Reason:       a.Reason,
		})
	}
	return out
}

// parseListQuery reads from, to (RFC 3339) and needingClosure.
func parseListQuery(q url.Values) (service.ListRequest, error) {
	var req service.ListRequest
	if raw := q.Get("needingClosure"); raw != "" {
		needing, err := strconv.ParseBool(raw)
		if err != nil {
			return req, dErrors.New(dErrors.CodeValidation, "needing_closure must be a boolean")
		}
		req.NeedingClosure = needing
	}
	from, err := parseInstant(q, "from")
	if err != nil {
		return req, err
	}
	to, err := parseInstant(q, "to")
	if err != nil {
		return req, err
	}
	req.Window = models.Window{From: from, To: to}
	return req, nil
}

func parseInstant(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be an RFC 3339 timestamp", key))
	}
	t = t.UTC()
	return &t, nil
}

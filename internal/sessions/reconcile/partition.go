package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"youthsessions/internal/sessions/models"
	dErrors "youthsessions/pkg/domain-errors"
)

// IncompleteAttendanceError lists roster individuals the submission left out.
type IncompleteAttendanceError struct {
	SessionID string
	Missing   []string
}

func (e *IncompleteAttendanceError) Error() string {
	return fmt.Sprintf("attendance for session %s is missing %d enrollee(s): %s",
		e.SessionID, len(e.Missing), strings.Join(e.Missing, ", "))
}

// Unwrap exposes the domain code so transports can map it without knowing this type.
func (e *IncompleteAttendanceError) Unwrap() error {
	return &dErrors.Error{Code: dErrors.CodeIncompleteAttendance, Message: e.Error()}
}

// CapacityExceededError reports a sheet that would take more seats than the
// partner has left for the session.
type CapacityExceededError struct {
	SessionID string
	Available int
	Requested int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("session %s has %d seat(s) left, attendance needs %d", e.SessionID, e.Available, e.Requested)
}

func (e *CapacityExceededError) Unwrap() error {
	return &dErrors.Error{Code: dErrors.CodeCapacityExceeded, Message: e.Error()}
}

// Partition diffs submissions against the session roster.
//
// Every roster individual must be covered or nothing is computed. Individuals
// absent from the roster may only be submitted as ENROLLED, which registers them.
// ToRemove stays empty: nothing in attendance submission asks for a removal.
// When the partner reports available seats, the net seats taken must fit.
func Partition(session models.ExternalSession, roster []models.Enrollment, submissions []models.AttendanceSubmission) (models.Mutations, error) {
	sessionID := session.ID
	bySubject := make(map[string]models.AttendanceSubmission, len(submissions))
	for _, sub := range submissions {
		if sub.IndividualID == "" {
			return models.Mutations{}, dErrors.New(dErrors.CodeValidation, "attendance entry without individual id")
		}
		if _, dup := bySubject[sub.IndividualID]; dup {
			return models.Mutations{}, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("individual %s submitted more than once", sub.IndividualID))
		}
		if _, err := models.ParseEnrollmentStatus(string(sub.Status)); err != nil {
			return models.Mutations{}, dErrors.Wrap(err, dErrors.CodeValidation,
				fmt.Sprintf("individual %s: unsupported status %q", sub.IndividualID, sub.Status))
		}
		bySubject[sub.IndividualID] = sub
	}

	onRoster := make(map[string]struct{}, len(roster))
	var missing []string
	for _, e := range roster {
		onRoster[e.IndividualID] = struct{}{}
		if _, ok := bySubject[e.IndividualID]; !ok {
			missing = append(missing, e.IndividualID)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return models.Mutations{}, &IncompleteAttendanceError{SessionID: sessionID, Missing: missing}
	}

	var m models.Mutations
	for _, e := range roster {
		sub := bySubject[e.IndividualID]
		if sub.Status == e.Status {
			m.Unchanged = append(m.Unchanged, e)
			continue
		}
		change := models.EnrollmentChange{Enrollment: e, Status: sub.Status}
		if sub.Status == models.EnrollmentRefusedByYouth {
			change.Reason = sub.Reason
		}
		m.ToModify = append(m.ToModify, change)
	}

	// Submission order is kept for registrations.
	for _, sub := range submissions {
		if _, ok := onRoster[sub.IndividualID]; ok {
			continue
		}
		if sub.Status != models.EnrollmentEnrolled {
			return models.Mutations{}, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("individual %s is not enrolled in session %s and can only be registered", sub.IndividualID, sessionID))
		}
		m.ToRegister = append(m.ToRegister, models.AttendanceSubmission{IndividualID: sub.IndividualID, Status: sub.Status})
	}

	if err := checkCapacity(session, m); err != nil {
		return models.Mutations{}, err
	}
	return m, nil
}

// checkCapacity counts registrations and moves back to ENROLLED as seats taken,
// and ENROLLED entries leaving that status as seats freed. Available seats
// already exclude the current ENROLLED entries.
func checkCapacity(session models.ExternalSession, m models.Mutations) error {
	if session.Capacity == nil {
		return nil
	}
	taken := len(m.ToRegister)
	freed := 0
	for _, c := range m.ToModify {
		switch {
		case c.Status == models.EnrollmentEnrolled:
			taken++
		case c.Enrollment.Status == models.EnrollmentEnrolled:
			freed++
		}
	}
	for _, e := range m.ToRemove {
		if e.Status == models.EnrollmentEnrolled {
			freed++
		}
	}
	if net := taken - freed; net > *session.Capacity {
		return &CapacityExceededError{SessionID: session.ID, Available: *session.Capacity, Requested: net}
	}
	return nil
}

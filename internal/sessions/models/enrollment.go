package models

import "fmt"

// EnrollmentStatus is an individual's participation state in a session.
type EnrollmentStatus string

const (
	EnrollmentEnrolled            EnrollmentStatus = "ENROLLED"
	EnrollmentPresent             EnrollmentStatus = "PRESENT"
	EnrollmentRefusedByThirdParty EnrollmentStatus = "REFUSED_BY_THIRD_PARTY"
	EnrollmentRefusedByYouth      EnrollmentStatus = "REFUSED_BY_YOUTH"
	EnrollmentUnknown             EnrollmentStatus = "UNKNOWN"
)

// ParseEnrollmentStatus validates a status supplied by a counsellor.
// UNKNOWN is only produced when decoding partner data and is never accepted as input.
func ParseEnrollmentStatus(s string) (EnrollmentStatus, error) {
	switch st := EnrollmentStatus(s); st {
	case EnrollmentEnrolled, EnrollmentPresent, EnrollmentRefusedByThirdParty, EnrollmentRefusedByYouth:
		return st, nil
	default:
		return "", fmt.Errorf("unsupported enrollment status %q", s)
	}
}

// Enrollment is one individual's entry on a session roster.
// IndividualID is the local identifier; PartnerIndividualID and EnrollmentID are partner-side.
type Enrollment struct {
	SessionID           string
	IndividualID        string
	PartnerIndividualID string
	EnrollmentID        string
	FirstName           string
	LastName            string
	Status              EnrollmentStatus
	Reason              string
}

// AttendanceRecorded reports whether every roster entry carries an outcome,
// that is nobody is still merely ENROLLED. An empty roster counts as recorded.
func AttendanceRecorded(roster []Enrollment) bool {
	for _, e := range roster {
		if e.Status == EnrollmentEnrolled {
			return false
		}
	}
	return true
}

// AttendanceSubmission is the counsellor's desired outcome for one individual.
type AttendanceSubmission struct {
	IndividualID string
	Status       EnrollmentStatus
	Reason       string
}

// EnrollmentChange is a roster entry whose status must move to a new value.
type EnrollmentChange struct {
	Enrollment Enrollment
	Status     EnrollmentStatus
	Reason     string
}

// Mutations is the minimal delta between a roster and a set of submissions.
type Mutations struct {
	ToRegister []AttendanceSubmission
	ToModify   []EnrollmentChange
	ToRemove   []Enrollment
	Unchanged  []Enrollment
}

// Empty reports whether nothing needs to be sent to the partner.
func (m Mutations) Empty() bool {
	return len(m.ToRegister) == 0 && len(m.ToModify) == 0 && len(m.ToRemove) == 0
}

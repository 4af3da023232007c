package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"youthsessions/internal/sessions/models"
	dErrors "youthsessions/pkg/domain-errors"
)

var session42 = models.ExternalSession{ID: "42"}

func seats(n int) *int { return &n }

func enrollment(id string, status models.EnrollmentStatus) models.Enrollment {
	return models.Enrollment{
		SessionID:           "42",
		IndividualID:        id,
		PartnerIndividualID: "p-" + id,
		EnrollmentID:        "d-" + id,
		Status:              status,
	}
}

func TestPartitionRequiresFullRoster(t *testing.T) {
	roster := []models.Enrollment{
		enrollment("C", models.EnrollmentEnrolled),
		enrollment("A", models.EnrollmentEnrolled),
		enrollment("B", models.EnrollmentEnrolled),
	}
	subs := []models.AttendanceSubmission{
		{IndividualID: "B", Status: models.EnrollmentPresent},
	}

	m, err := Partition(session42, roster, subs)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIncompleteAttendance))
	assert.True(t, m.Empty())

	var incomplete *IncompleteAttendanceError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"A", "C"}, incomplete.Missing)
	assert.Equal(t, "42", incomplete.SessionID)
}

func TestPartitionClassifiesEachIndividual(t *testing.T) {
	roster := []models.Enrollment{
		enrollment("A", models.EnrollmentEnrolled),
		enrollment("B", models.EnrollmentPresent),
		enrollment("C", models.EnrollmentEnrolled),
	}
	subs := []models.AttendanceSubmission{
		{IndividualID: "N", Status: models.EnrollmentEnrolled},
		{IndividualID: "A", Status: models.EnrollmentPresent, Reason: "ignored"},
		{IndividualID: "B", Status: models.EnrollmentPresent},
		{IndividualID: "C", Status: models.EnrollmentRefusedByYouth, Reason: "moved away"},
	}

	m, err := Partition(session42, roster, subs)
	require.NoError(t, err)

	require.Len(t, m.ToRegister, 1)
	assert.Equal(t, "N", m.ToRegister[0].IndividualID)

	require.Len(t, m.ToModify, 2)
	assert.Equal(t, "A", m.ToModify[0].Enrollment.IndividualID)
	assert.Equal(t, models.EnrollmentPresent, m.ToModify[0].Status)
	assert.Empty(t, m.ToModify[0].Reason)
	assert.Equal(t, "C", m.ToModify[1].Enrollment.IndividualID)
	assert.Equal(t, models.EnrollmentRefusedByYouth, m.ToModify[1].Status)
	assert.Equal(t, "moved away", m.ToModify[1].Reason)

	require.Len(t, m.Unchanged, 1)
	assert.Equal(t, "B", m.Unchanged[0].IndividualID)
	assert.Empty(t, m.ToRemove)
}

func TestPartitionMatchingSheetIsEmpty(t *testing.T) {
	roster := []models.Enrollment{
		enrollment("A", models.EnrollmentPresent),
		enrollment("B", models.EnrollmentRefusedByThirdParty),
	}
	subs := []models.AttendanceSubmission{
		{IndividualID: "A", Status: models.EnrollmentPresent},
		{IndividualID: "B", Status: models.EnrollmentRefusedByThirdParty},
	}

	m, err := Partition(session42, roster, subs)
	require.NoError(t, err)
	assert.True(t, m.Empty())
	assert.Len(t, m.Unchanged, 2)
}

func TestPartitionRejectsInvalidSheets(t *testing.T) {
	roster := []models.Enrollment{enrollment("A", models.EnrollmentEnrolled)}

	cases := []struct {
		name string
		subs []models.AttendanceSubmission
	}{
		{"missing individual id", []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentPresent},
			{Status: models.EnrollmentPresent},
		}},
		{"duplicate individual", []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentPresent},
			{IndividualID: "A", Status: models.EnrollmentEnrolled},
		}},
		{"unknown status", []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentUnknown},
		}},
		{"off-roster individual marked present", []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentPresent},
			{IndividualID: "Z", Status: models.EnrollmentPresent},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Partition(session42, roster, tc.subs)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), err.Error())
		})
	}
}

func TestPartitionEmptyRoster(t *testing.T) {
	m, err := Partition(session42, nil, nil)
	require.NoError(t, err)
	assert.True(t, m.Empty())
}

func TestPartitionChecksCompletenessAgainstRoster(t *testing.T) {
	roster := []models.Enrollment{
		enrollment("A", models.EnrollmentEnrolled),
		enrollment("B", models.EnrollmentEnrolled),
	}

	t.Run("both roster entries modified", func(t *testing.T) {
		m, err := Partition(session42, roster, []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentPresent},
			{IndividualID: "B", Status: models.EnrollmentRefusedByYouth},
		})
		require.NoError(t, err)
		assert.Len(t, m.ToModify, 2)
		assert.Empty(t, m.ToRegister)
	})

	t.Run("new individual does not stand in for a missing one", func(t *testing.T) {
		_, err := Partition(session42, roster, []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentPresent},
			{IndividualID: "C", Status: models.EnrollmentEnrolled},
		})
		require.Error(t, err)
		var incomplete *IncompleteAttendanceError
		require.True(t, errors.As(err, &incomplete))
		assert.Equal(t, []string{"B"}, incomplete.Missing)
	})
}

func TestPartitionChecksAvailableSeats(t *testing.T) {
	roster := []models.Enrollment{
		enrollment("A", models.EnrollmentEnrolled),
		enrollment("B", models.EnrollmentRefusedByYouth),
		enrollment("C", models.EnrollmentPresent),
	}

	cases := []struct {
		name      string
		available *int
		subs      []models.AttendanceSubmission
		requested int
	}{
		{"unknown capacity never blocks", nil, []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentEnrolled},
			{IndividualID: "B", Status: models.EnrollmentEnrolled},
			{IndividualID: "C", Status: models.EnrollmentPresent},
			{IndividualID: "N", Status: models.EnrollmentEnrolled},
		}, -1},
		{"registration fits the last seat", seats(1), []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentEnrolled},
			{IndividualID: "B", Status: models.EnrollmentRefusedByYouth},
			{IndividualID: "C", Status: models.EnrollmentPresent},
			{IndividualID: "N", Status: models.EnrollmentEnrolled},
		}, -1},
		{"registration and re-enrolment overbook", seats(1), []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentEnrolled},
			{IndividualID: "B", Status: models.EnrollmentEnrolled},
			{IndividualID: "C", Status: models.EnrollmentPresent},
			{IndividualID: "N", Status: models.EnrollmentEnrolled},
		}, 2},
		{"refusal frees a seat for a newcomer", seats(0), []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentRefusedByThirdParty},
			{IndividualID: "B", Status: models.EnrollmentRefusedByYouth},
			{IndividualID: "C", Status: models.EnrollmentPresent},
			{IndividualID: "N", Status: models.EnrollmentEnrolled},
		}, -1},
		{"full session takes no newcomer", seats(0), []models.AttendanceSubmission{
			{IndividualID: "A", Status: models.EnrollmentEnrolled},
			{IndividualID: "B", Status: models.EnrollmentRefusedByYouth},
			{IndividualID: "C", Status: models.EnrollmentPresent},
			{IndividualID: "N", Status: models.EnrollmentEnrolled},
		}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := models.ExternalSession{ID: "42", Capacity: tc.available}
			m, err := Partition(session, roster, tc.subs)
			if tc.requested < 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, m.Empty())
			assert.True(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded), err.Error())

			var full *CapacityExceededError
			require.True(t, errors.As(err, &full))
			assert.Equal(t, *tc.available, full.Available)
			assert.Equal(t, tc.requested, full.Requested)
		})
	}
}

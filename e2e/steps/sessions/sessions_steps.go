package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any) error
	GetLastResponseBody() []byte
	SetAccessToken(token string)

	SeedCounsellor(counsellorID, structureID, timezone string) error
	SeedYouth(localID, partnerID string) error
	HostSession(structureID, timezone, sessionID string, start, end time.Time) error
	EnrollDossier(sessionID, dossierID, status string) error
	PartnerEnrollmentStatus(sessionID, dossierID string) (string, bool)
	SetPartnerUnavailable(down bool)
	PartnerWrites() []string
}

// RegisterSteps registers session and attendance step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &sessionSteps{tc: tc, timezones: map[string]string{}, dossiers: map[string]string{}}

	// Fixture steps
	ctx.Step(`^counsellor "([^"]*)" works for structure "([^"]*)" in timezone "([^"]*)"$`, steps.counsellorWorksFor)
	ctx.Step(`^youth "([^"]*)" has partner dossier "([^"]*)"$`, steps.youthHasDossier)
	ctx.Step(`^the partner hosts session "([^"]*)" for structure "([^"]*)" that ended (\d+) days? ago$`, steps.hostEndedSession)
	ctx.Step(`^the partner hosts session "([^"]*)" for structure "([^"]*)" that starts in (\d+) days?$`, steps.hostUpcomingSession)
	ctx.Step(`^youth "([^"]*)" is enrolled in session "([^"]*)" with partner status "([^"]*)"$`, steps.youthIsEnrolled)
	ctx.Step(`^the partner is unavailable$`, steps.partnerIsUnavailable)
	ctx.Step(`^the counsellor's access token is "([^"]*)"$`, steps.accessTokenIs)

	// Request steps
	ctx.Step(`^counsellor "([^"]*)" lists their sessions$`, steps.listSessions)
	ctx.Step(`^counsellor "([^"]*)" lists their sessions needing closure$`, steps.listSessionsNeedingClosure)
	ctx.Step(`^counsellor "([^"]*)" opens session "([^"]*)"$`, steps.openSession)
	ctx.Step(`^counsellor "([^"]*)" opens session "([^"]*)" from the closure reminder$`, steps.openObservedSession)
	ctx.Step(`^counsellor "([^"]*)" makes session "([^"]*)" (visible|hidden)$`, steps.setVisibility)
	ctx.Step(`^counsellor "([^"]*)" opens session "([^"]*)" to self-registration$`, steps.openToSelfRegistration)
	ctx.Step(`^counsellor "([^"]*)" submits attendance for session "([^"]*)":$`, steps.submitAttendance)

	// Assertion steps
	ctx.Step(`^the listing should contain (\d+) sessions?$`, steps.listingShouldContain)
	ctx.Step(`^session "([^"]*)" should have status "([^"]*)"$`, steps.sessionShouldHaveStatus)
	ctx.Step(`^session "([^"]*)" should be (visible|hidden)$`, steps.sessionShouldBeVisible)
	ctx.Step(`^the roster should list youth "([^"]*)" as "([^"]*)"$`, steps.rosterShouldList)
	ctx.Step(`^the partner should have received (\d+) enrollment writes?$`, steps.partnerWritesShouldBe)
	ctx.Step(`^the partner should hold youth "([^"]*)" in session "([^"]*)" as "([^"]*)"$`, steps.partnerShouldHold)
	ctx.Step(`^the missing enrollees should be "([^"]*)"$`, steps.missingShouldBe)
}

type sessionSteps struct {
	tc TestContext

	timezones map[string]string // by structure id
	dossiers  map[string]string // by local youth id
}

type sessionBody struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Visible   bool   `json:"visible"`
	Enrollees []struct {
		IndividualID string `json:"individualId"`
		Status       string `json:"status"`
	} `json:"enrollees"`
}

func (s *sessionSteps) counsellorWorksFor(ctx context.Context, counsellorID, structureID, timezone string) error {
	s.timezones[structureID] = timezone
	return s.tc.SeedCounsellor(counsellorID, structureID, timezone)
}

func (s *sessionSteps) youthHasDossier(ctx context.Context, localID, dossierID string) error {
	s.dossiers[localID] = dossierID
	return s.tc.SeedYouth(localID, dossierID)
}

func (s *sessionSteps) timezone(structureID string) (string, error) {
	tz, ok := s.timezones[structureID]
	if !ok {
		return "", fmt.Errorf("no counsellor works for structure %s yet", structureID)
	}
	return tz, nil
}

func (s *sessionSteps) hostEndedSession(ctx context.Context, sessionID, structureID string, days int) error {
	tz, err := s.timezone(structureID)
	if err != nil {
		return err
	}
	end := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return s.tc.HostSession(structureID, tz, sessionID, end.Add(-2*time.Hour), end)
}

func (s *sessionSteps) hostUpcomingSession(ctx context.Context, sessionID, structureID string, days int) error {
	tz, err := s.timezone(structureID)
	if err != nil {
		return err
	}
	start := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	return s.tc.HostSession(structureID, tz, sessionID, start, start.Add(2*time.Hour))
}

func (s *sessionSteps) youthIsEnrolled(ctx context.Context, localID, sessionID, status string) error {
	dossier, ok := s.dossiers[localID]
	if !ok {
		return fmt.Errorf("youth %s has no partner dossier", localID)
	}
	return s.tc.EnrollDossier(sessionID, dossier, status)
}

func (s *sessionSteps) partnerIsUnavailable(ctx context.Context) error {
	s.tc.SetPartnerUnavailable(true)
	return nil
}

func (s *sessionSteps) accessTokenIs(ctx context.Context, token string) error {
	s.tc.SetAccessToken(token)
	return nil
}

func (s *sessionSteps) listSessions(ctx context.Context, counsellorID string) error {
	return s.tc.Do(http.MethodGet, fmt.Sprintf("/counsellors/%s/sessions", counsellorID), nil)
}

func (s *sessionSteps) listSessionsNeedingClosure(ctx context.Context, counsellorID string) error {
	return s.tc.Do(http.MethodGet, fmt.Sprintf("/counsellors/%s/sessions?needingClosure=true", counsellorID), nil)
}

func (s *sessionSteps) openSession(ctx context.Context, counsellorID, sessionID string) error {
	return s.tc.Do(http.MethodGet, fmt.Sprintf("/counsellors/%s/sessions/%s", counsellorID, sessionID), nil)
}

func (s *sessionSteps) openObservedSession(ctx context.Context, counsellorID, sessionID string) error {
	return s.tc.Do(http.MethodGet, fmt.Sprintf("/counsellors/%s/sessions/%s?observed=true", counsellorID, sessionID), nil)
}

func (s *sessionSteps) setVisibility(ctx context.Context, counsellorID, sessionID, visibility string) error {
	return s.tc.Do(http.MethodPut, fmt.Sprintf("/counsellors/%s/sessions/%s/visibility", counsellorID, sessionID),
		map[string]bool{"visible": visibility == "visible"})
}

func (s *sessionSteps) openToSelfRegistration(ctx context.Context, counsellorID, sessionID string) error {
	return s.tc.Do(http.MethodPut, fmt.Sprintf("/counsellors/%s/sessions/%s/visibility", counsellorID, sessionID),
		map[string]bool{"autoRegistration": true})
}

func (s *sessionSteps) submitAttendance(ctx context.Context, counsellorID, sessionID string, table *godog.Table) error {
	if len(table.Rows) == 0 {
		return fmt.Errorf("attendance table needs a header row")
	}
	header := table.Rows[0].Cells
	entries := make([]map[string]string, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		entry := make(map[string]string, len(header))
		for i, cell := range row.Cells {
			if cell.Value != "" {
				entry[header[i].Value] = cell.Value
			}
		}
		entries = append(entries, entry)
	}
	return s.tc.Do(http.MethodPost, fmt.Sprintf("/counsellors/%s/sessions/%s/attendance", counsellorID, sessionID),
		map[string]any{"attendances": entries})
}

func (s *sessionSteps) listing() ([]sessionBody, error) {
	var body struct {
		Sessions []sessionBody `json:"sessions"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, fmt.Errorf("response is not a session listing: %w", err)
	}
	return body.Sessions, nil
}

// session finds a session in the last listing, or reads the last detail response.
func (s *sessionSteps) session(sessionID string) (sessionBody, error) {
	sessions, err := s.listing()
	if err == nil && sessions != nil {
		for _, sess := range sessions {
			if sess.ID == sessionID {
				return sess, nil
			}
		}
		return sessionBody{}, fmt.Errorf("session %s not in listing\nResponse: %s", sessionID, s.tc.GetLastResponseBody())
	}
	var detail sessionBody
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &detail); err != nil || detail.ID != sessionID {
		return sessionBody{}, fmt.Errorf("session %s not in response\nResponse: %s", sessionID, s.tc.GetLastResponseBody())
	}
	return detail, nil
}

func (s *sessionSteps) listingShouldContain(ctx context.Context, n int) error {
	sessions, err := s.listing()
	if err != nil {
		return err
	}
	if len(sessions) != n {
		return fmt.Errorf("expected %d sessions but got %d", n, len(sessions))
	}
	return nil
}

func (s *sessionSteps) sessionShouldHaveStatus(ctx context.Context, sessionID, status string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if sess.Status != status {
		return fmt.Errorf("expected session %s to be %s but it is %s", sessionID, status, sess.Status)
	}
	return nil
}

func (s *sessionSteps) sessionShouldBeVisible(ctx context.Context, sessionID, visibility string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if want := visibility == "visible"; sess.Visible != want {
		return fmt.Errorf("expected session %s to be %s", sessionID, visibility)
	}
	return nil
}

func (s *sessionSteps) rosterShouldList(ctx context.Context, localID, status string) error {
	var detail sessionBody
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &detail); err != nil {
		return fmt.Errorf("response is not a session detail: %w", err)
	}
	for _, e := range detail.Enrollees {
		if e.IndividualID == localID {
			if e.Status != status {
				return fmt.Errorf("expected youth %s to be %s but got %s", localID, status, e.Status)
			}
			return nil
		}
	}
	return fmt.Errorf("youth %s not on the roster", localID)
}

func (s *sessionSteps) partnerWritesShouldBe(ctx context.Context, n int) error {
	writes := s.tc.PartnerWrites()
	if len(writes) != n {
		return fmt.Errorf("expected %d partner writes but got %d: %s", n, len(writes), strings.Join(writes, "; "))
	}
	return nil
}

func (s *sessionSteps) partnerShouldHold(ctx context.Context, localID, sessionID, status string) error {
	dossier, ok := s.dossiers[localID]
	if !ok {
		return fmt.Errorf("youth %s has no partner dossier", localID)
	}
	actual, ok := s.tc.PartnerEnrollmentStatus(sessionID, dossier)
	if !ok {
		return fmt.Errorf("partner has no enrollment for youth %s in session %s", localID, sessionID)
	}
	if actual != status {
		return fmt.Errorf("expected partner status %s but got %s", status, actual)
	}
	return nil
}

func (s *sessionSteps) missingShouldBe(ctx context.Context, list string) error {
	var body struct {
		Details struct {
			Missing []string `json:"missing"`
		} `json:"details"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("response is not an error body: %w", err)
	}
	if got := strings.Join(body.Details.Missing, ","); got != list {
		return fmt.Errorf("expected missing %q but got %q", list, got)
	}
	return nil
}

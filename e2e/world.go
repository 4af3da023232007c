package e2e

import (
	"context"
	"fmt"
	"strconv"
	"time"

	identitystore "youthsessions/internal/identity/store"
	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/partner"
)

// Fixture methods used by the step packages.

func (tc *TestContext) SeedCounsellor(counsellorID, structureID, timezone string) error {
	return tc.Harness.Identities.SaveCounsellor(context.Background(), identitystore.Counsellor{
		ID:          counsellorID,
		StructureID: structureID,
		Timezone:    timezone,
	})
}

func (tc *TestContext) SeedYouth(localID, partnerID string) error {
	return tc.Harness.Identities.SaveYouth(context.Background(), identitystore.Youth{
		ID:        localID,
		PartnerID: partnerID,
	})
}

// HostSession publishes a partner session; start and end are written as civil
// times in the structure's timezone, the way the partner stores them.
func (tc *TestContext) HostSession(structureID, timezone, sessionID string, start, end time.Time) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return fmt.Errorf("partner session ids are numeric, got %q", sessionID)
	}
	tc.Harness.Partner.host(structureID, partner.SessionDetailDTO{
		Session: partner.SessionDTO{
			ID:    id,
			Name:  "Session " + sessionID,
			Start: start.In(loc).Format(models.CivilLayout),
			End:   end.In(loc).Format(models.CivilLayout),
		},
		Offer: partner.OfferDTO{ID: 1, Name: "Atelier CV", Type: partner.OfferTypeWorkshop},
	})
	return nil
}

func (tc *TestContext) EnrollDossier(sessionID, dossierID, status string) error {
	id, err := strconv.ParseInt(dossierID, 10, 64)
	if err != nil {
		return fmt.Errorf("partner dossier ids are numeric, got %q", dossierID)
	}
	tc.Harness.Partner.enroll(sessionID, id, status)
	return nil
}

func (tc *TestContext) PartnerEnrollmentStatus(sessionID, dossierID string) (string, bool) {
	id, err := strconv.ParseInt(dossierID, 10, 64)
	if err != nil {
		return "", false
	}
	return tc.Harness.Partner.statusOf(sessionID, id)
}

func (tc *TestContext) SetPartnerUnavailable(down bool) {
	tc.Harness.Partner.setUnavailable(down)
}

func (tc *TestContext) PartnerWrites() []string {
	return tc.Harness.Partner.recordedWrites()
}

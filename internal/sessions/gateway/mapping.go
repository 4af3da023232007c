package gateway

import (
	"context"
	"fmt"
	"strconv"

	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/partner"
)

var offerTypeLabels = map[string]string{
	partner.OfferTypeWorkshop:              "Atelier",
	partner.OfferTypeCollectiveInformation: "Information collective",
}

func (g *Gateway) toExternalSession(ctx context.Context, dto partner.SessionDetailDTO) models.ExternalSession {
	return models.ExternalSession{
		ID:    formatID(dto.Session.ID),
		Title: dto.Session.Name,
		Offer: models.Offer{
			ID:          formatID(dto.Offer.ID),
			Name:        dto.Offer.Name,
			Theme:       dto.Offer.Theme,
			Type:        g.offerType(ctx, dto.Offer),
			Description: dto.Offer.Description,
			PartnerName: dto.Offer.PartnerName,
		},
		Start:                dto.Session.Start,
		End:                  dto.Session.End,
		RegistrationDeadline: dto.Session.RegistrationDeadline,
		Capacity:             dto.Session.AvailableSeats,
		Comment:              dto.Session.Comment,
		Animator:             dto.Session.Animator,
		Location:             dto.Session.Location,
	}
}

// offerType labels known offer types; unknown ones are shown as workshops.
func (g *Gateway) offerType(ctx context.Context, offer partner.OfferDTO) models.OfferType {
	label, ok := offerTypeLabels[offer.Type]
	if !ok {
		g.logger.WarnContext(ctx, "unknown partner offer type",
			"offer_id", offer.ID,
			"type", offer.Type,
		)
		label = offerTypeLabels[partner.OfferTypeWorkshop]
	}
	return models.OfferType{Code: offer.Type, Label: label}
}

func (g *Gateway) statusFromPartner(ctx context.Context, dto partner.EnrolleeDTO) models.EnrollmentStatus {
	switch dto.Status {
	case partner.StatusEnrolled:
		return models.EnrollmentEnrolled
	case partner.StatusPresent:
		return models.EnrollmentPresent
	case partner.StatusRefusedByThirdParty:
		return models.EnrollmentRefusedByThirdParty
	case partner.StatusRefusedByYouth:
		return models.EnrollmentRefusedByYouth
	default:
		g.logger.WarnContext(ctx, "unknown partner enrollment status",
			"session_instance_id", dto.SessionInstanceID,
			"dossier_id", dto.DossierID,
			"status", dto.Status,
		)
		return models.EnrollmentUnknown
	}
}

func statusToPartner(status models.EnrollmentStatus) (string, error) {
	switch status {
	case models.EnrollmentEnrolled:
		return partner.StatusEnrolled, nil
	case models.EnrollmentPresent:
		return partner.StatusPresent, nil
	case models.EnrollmentRefusedByThirdParty:
		return partner.StatusRefusedByThirdParty, nil
	case models.EnrollmentRefusedByYouth:
		return partner.StatusRefusedByYouth, nil
	default:
		return "", fmt.Errorf("enrollment status %q cannot be sent to the partner", status)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

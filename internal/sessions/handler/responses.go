package handler

import (
	"time"

	"youthsessions/internal/sessions/models"
)

type OfferTypeResponse struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type OfferResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Theme       string            `json:"theme"`
	Type        OfferTypeResponse `json:"type"`
	Description string            `json:"description,omitempty"`
	PartnerName string            `json:"partnerName,omitempty"`
}

type SessionResponse struct {
	ID                   string        `json:"id"`
	Title                string        `json:"title"`
	Offer                OfferResponse `json:"offer"`
	Start                time.Time     `json:"start"`
	End                  time.Time     `json:"end"`
	RegistrationDeadline *time.Time    `json:"registrationDeadline,omitempty"`
	Capacity             *int          `json:"capacity,omitempty"`
	Comment              string        `json:"comment,omitempty"`
	Animator             string        `json:"animator,omitempty"`
	Location             string        `json:"location,omitempty"`
	Visible              bool          `json:"visible"`
	AutoRegistration     bool          `json:"autoRegistration"`
	ClosedAt             *time.Time    `json:"closedAt,omitempty"`
	Status               string        `json:"status"`
}

type EnrolleeResponse struct {
	IndividualID string `json:"individualId"`
	EnrollmentID string `json:"enrollmentId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
}

type SessionDetailResponse struct {
	SessionResponse
	Enrollees []EnrolleeResponse `json:"enrollees"`
}

type ListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// IncompleteDetails lists the roster individuals an attendance sheet left out.
type IncompleteDetails struct {
	Missing []string `json:"missing"`
}

func toSessionResponse(v models.SessionView) SessionResponse {
	return SessionResponse{
		ID:    v.ID,
		Title: v.Title,
		Offer: OfferResponse{
			ID:          v.Offer.ID,
			Name:        v.Offer.Name,
			Theme:       v.Offer.Theme,
			Type:        OfferTypeResponse{Code: v.Offer.Type.Code, Label: v.Offer.Type.Label},
			Description: v.Offer.Description,
			PartnerName: v.Offer.PartnerName,
		},
		Start:                v.Start,
		End:                  v.End,
		RegistrationDeadline: v.RegistrationDeadline,
		Capacity:             v.Capacity,
		Comment:              v.Comment,
		Animator:             v.Animator,
		Location:             v.Location,
		Visible:              v.Visible,
		AutoRegistration:     v.AutoRegistration,
		ClosedAt:             v.ClosedAt,
		Status:               string(v.Status),
	}
}

func toSessionResponses(views []models.SessionView) []SessionResponse {
	out := make([]SessionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toSessionResponse(v))
	}
	return out
}

func toDetailResponse(d models.SessionDetailView) SessionDetailResponse {
	enrollees := make([]EnrolleeResponse, 0, len(d.Enrollees))
	for _, e := range d.Enrollees {
		enrollees = append(enrollees, EnrolleeResponse{
			IndividualID: e.IndividualID,
			EnrollmentID: e.EnrollmentID,
			FirstName:    e.FirstName,
			LastName:     e.LastName,
			Status:       string(e.Status),
			Reason:       e.Reason,
		})
	}
	return SessionDetailResponse{SessionResponse: toSessionResponse(d.SessionView), Enrollees: enrollees}
}

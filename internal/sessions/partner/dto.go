package partner

// Partner enrollment status codes.
const (
	StatusEnrolled            = "ONGOING"
	StatusPresent             = "ACHIEVED"
	StatusRefusedByThirdParty = "REFUSAL"
	StatusRefusedByYouth      = "REFUSAL_YOUNG"
)

// Offer type codes.
const (
	OfferTypeWorkshop              = "WORKSHOP"
	OfferTypeCollectiveInformation = "COLLECTIVE_INFORMATION"
)

// SessionDTO is the session block of a partner session record.
type SessionDTO struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"nom"`
	Start                string `json:"dateHeureDebut"`
	End                  string `json:"dateHeureFin"`
	RegistrationDeadline string `json:"dateMaxInscription,omitempty"`
	Animator             string `json:"animateur"`
	Location             string `json:"lieu"`
	AvailableSeats       *int   `json:"nbPlacesDisponibles,omitempty"`
	Comment              string `json:"commentaire,omitempty"`
}

// OfferDTO is the offer block of a partner session record.
type OfferDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"nom"`
	Theme       string `json:"theme"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	PartnerName string `json:"nomPartenaire,omitempty"`
}

// SessionDetailDTO is one partner session with its offer.
type SessionDetailDTO struct {
	Session SessionDTO `json:"session"`
	Offer   OfferDTO   `json:"offre"`
}

// SessionPage is one page of a structure's session listing.
type SessionPage struct {
	Page       int                `json:"page"`
	TotalCount int                `json:"nbSessions"`
	Sessions   []SessionDetailDTO `json:"sessions"`
}

// EnrolleeDTO is one entry of a session roster.
type EnrolleeDTO struct {
	DossierID         int64  `json:"idDossier"`
	SessionInstanceID int64  `json:"idInstanceSession"`
	LastName          string `json:"nom"`
	FirstName         string `json:"prenom"`
	Status            string `json:"statut"`
}

// EnrollmentRef addresses an existing enrollment.
type EnrollmentRef struct {
	DossierID         string
	SessionInstanceID string
}

// EnrollmentUpdate changes the status of an existing enrollment.
type EnrollmentUpdate struct {
	EnrollmentRef
	Status          string
	Comment         string
	ActualStartDate string
}

type enrollmentUpdateBody struct {
	Status          string `json:"statut"`
	Comment         string `json:"commentaire,omitempty"`
	ActualStartDate string `json:"dateDebutReelle,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

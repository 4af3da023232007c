package models

import (
	"fmt"
	"time"

	// Structure timezones must resolve even on hosts without a zoneinfo database.
	_ "time/tzdata"
)

// CivilLayout is the partner's wall-clock format, expressed in the structure's timezone.
const CivilLayout = "2006-01-02 15:04:05"

// DateLayout is the partner's calendar-date format.
const DateLayout = "2006-01-02"

// Structure is the counsellor's local agency, the scope of every partner query.
type Structure struct {
	ID       string
	Timezone string
}

// Location resolves the structure's IANA timezone.
func (s Structure) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return nil, fmt.Errorf("structure %s has no timezone", s.ID)
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("structure %s: load timezone %q: %w", s.ID, s.Timezone, err)
	}
	return loc, nil
}

// OfferType is the kind of offer a session belongs to.
type OfferType struct {
	Code  string
	Label string
}

// Offer groups sessions of the same workshop or information meeting.
type Offer struct {
	ID          string
	Name        string
	Theme       string
	Type        OfferType
	Description string
	PartnerName string
}

// ExternalSession is the partner-owned record for a scheduled event.
// Start and End are civil strings in the structure's timezone; callers localize them.
type ExternalSession struct {
	ID                   string
	Title                string
	Offer                Offer
	Start                string
	End                  string
	RegistrationDeadline string
	Capacity             *int
	Comment              string
	Animator             string
	Location             string
}

// Overlay is the locally-owned state layered over a partner session.
type Overlay struct {
	SessionID        string     `json:"session_id"`
	StructureID      string     `json:"structure_id"`
	Visible          bool       `json:"visible"`
	AutoRegistration bool       `json:"auto_registration"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	ModifiedAt       time.Time  `json:"modified_at"`
}

// IsClosed reports whether a closure has been recorded.
func (o Overlay) IsClosed() bool { return o.ClosedAt != nil }

// Configure applies the counsellor's settings; nil leaves a setting as is.
// A session open to self-registration is always visible, whatever visible says.
func (o Overlay) Configure(visible, autoRegistration *bool) Overlay {
	if autoRegistration != nil {
		o.AutoRegistration = *autoRegistration
	}
	switch {
	case o.AutoRegistration:
		o.Visible = true
	case visible != nil:
		o.Visible = *visible
	}
	return o
}

// OptionalOverlay makes "no overlay stored" explicit instead of a zero value masquerading as one.
type OptionalOverlay struct {
	overlay Overlay
	present bool
}

// SomeOverlay wraps a stored overlay.
func SomeOverlay(o Overlay) OptionalOverlay {
	return OptionalOverlay{overlay: o, present: true}
}

// NoOverlay represents a session never toggled or closed locally.
func NoOverlay() OptionalOverlay {
	return OptionalOverlay{}
}

// Get returns the overlay and whether one was stored.
func (o OptionalOverlay) Get() (Overlay, bool) {
	return o.overlay, o.present
}

// Present reports whether an overlay was stored.
func (o OptionalOverlay) Present() bool { return o.present }

// OverlayState is the effective local state once defaults are applied.
type OverlayState struct {
	Visible          bool
	AutoRegistration bool
	ClosedAt         *time.Time
}

// ApplyDefaults resolves an optional overlay to its effective state.
// An absent overlay means hidden and never closed.
func ApplyDefaults(o OptionalOverlay) OverlayState {
	stored, ok := o.Get()
	if !ok {
		return OverlayState{Visible: false, AutoRegistration: false, ClosedAt: nil}
	}
	return OverlayState{Visible: stored.Visible, AutoRegistration: stored.AutoRegistration, ClosedAt: stored.ClosedAt}
}

// LifecycleStatus is derived from end time, closure and now. It is never persisted.
type LifecycleStatus string

const (
	StatusUpcoming   LifecycleStatus = "UPCOMING"
	StatusToBeClosed LifecycleStatus = "TO_BE_CLOSED"
	StatusClosed     LifecycleStatus = "CLOSED"
)

// SessionView is what a counsellor sees for one session.
type SessionView struct {
	ID                   string
	Title                string
	Offer                Offer
	Start                time.Time
	End                  time.Time
	RegistrationDeadline *time.Time
	Capacity             *int
	Comment              string
	Animator             string
	Location             string
	Visible              bool
	AutoRegistration     bool
	ClosedAt             *time.Time
	Status               LifecycleStatus
}

// SessionDetailView is a SessionView plus the resolved roster.
type SessionDetailView struct {
	SessionView
	Enrollees []Enrollment
}

// Window bounds a session listing. Nil bounds are open.
type Window struct {
	From *time.Time
	To   *time.Time
}

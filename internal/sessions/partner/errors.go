package partner

import (
	"errors"
	"fmt"
)

// Category normalizes partner failures so the service can translate them once.
type Category string

const (
	// CategoryUnavailable covers network failures, timeouts and 5xx answers.
	CategoryUnavailable Category = "unavailable"

	// CategoryRejected covers 4xx answers other than 404; Message carries the partner's reason.
	CategoryRejected Category = "rejected"

	CategoryNotFound Category = "not_found"

	// CategoryContractMismatch means a 2xx body we could not decode.
	CategoryContractMismatch Category = "contract_mismatch"

	CategoryInternal Category = "internal"
)

// Error is a categorized partner failure.
type Error struct {
	Category   Category
	Endpoint   string
	Status     int
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("partner %s [%s]", e.Endpoint, e.Category)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s status=%d", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category Category, endpoint string, status int, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Endpoint:   endpoint,
		Status:     status,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf extracts the category of a partner error; unknown errors are internal.
func CategoryOf(err error) Category {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryInternal
}

// AsError unwraps a partner error from a chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

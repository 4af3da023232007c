package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "youthsessions/pkg/domain-errors"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Details     any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are sent; an encoding failure cannot change the status anymore.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates a domain error into its HTTP answer. Errors without a
// domain code become a bare 500.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithDetails(w, err, nil)
}

// WriteErrorWithDetails is WriteError plus a machine-readable details payload.
func WriteErrorWithDetails(w http.ResponseWriter, err error, details any) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Error:       string(domainErr.Code),
			Description: domainErr.Message,
			Details:     details,
		})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeIncompleteAttendance:
		return http.StatusUnprocessableEntity
	case dErrors.CodeCapacityExceeded:
		return http.StatusConflict
	// The partner's refusal is relayed as the caller's mistake.
	case dErrors.CodeUpstreamRejected:
		return http.StatusBadRequest
	case dErrors.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	case dErrors.CodeMissingStructure:
		return http.StatusForbidden
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"youthsessions/internal/sentinel"
	"youthsessions/internal/sessions/partner"
	dErrors "youthsessions/pkg/domain-errors"
)

// translate maps gateway and reconciler failures to domain errors.
// Errors that already carry a domain code pass through untouched.
func translate(err error, action string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}

	if pe, ok := partner.AsError(err); ok {
		switch pe.Category {
		case partner.CategoryNotFound:
			return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("%s: not found at partner", action))
		case partner.CategoryRejected:
			msg := pe.Message
			if msg == "" {
				msg = fmt.Sprintf("%s: rejected by partner", action)
			}
			return dErrors.Wrap(err, dErrors.CodeUpstreamRejected, msg)
		case partner.CategoryUnavailable, partner.CategoryContractMismatch:
			msg := fmt.Sprintf("%s: partner unavailable", action)
			if pe.Status != 0 {
				msg = fmt.Sprintf("%s: partner unavailable (status %d)", action, pe.Status)
			}
			return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, msg)
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, action)
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, fmt.Sprintf("%s: partner did not answer in time", action))
	case errors.Is(err, sentinel.ErrNotFound):
		// Only raised for an individual without a partner dossier.
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, action)
	}
}

func translateDirectory(err error, counsellorID string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeMissingStructure,
			fmt.Sprintf("counsellor %s is not attached to a structure", counsellorID))
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "resolve counsellor structure")
}

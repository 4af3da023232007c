package validation

import (
	"fmt"

	dErrors "youthsessions/pkg/domain-errors"
)

// MaxBodySize bounds JSON request bodies.
const MaxBodySize = 256 * 1024

const (
	// MaxAttendances bounds one attendance sheet; partner sessions cap far below it.
	MaxAttendances = 500

	MaxIndividualIDLength = 64
	MaxReasonLength       = 500
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

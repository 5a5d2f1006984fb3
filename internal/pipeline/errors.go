package pipeline

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed run input before Phase 1 starts. It is
// surfaced verbatim to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether the error chain contains a
// ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

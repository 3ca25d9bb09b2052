package schema

import (
	"errors"
	"net/http"
	"strings"
)

// DefaultMessage is the summary carried by validation failures unless the
// caller supplies its own.
const DefaultMessage = "Invalid Input Data"

// ValidationError reports why a payload was rejected. Errors holds one
// human-readable message per field problem, in the order the fields are
// declared on the schema.
type ValidationError struct {
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Errors, "; ")
}

// StatusCode is the HTTP status a validation failure translates to.
func (e *ValidationError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// WithMessage returns a copy of e carrying a different summary.
func (e *ValidationError) WithMessage(message string) *ValidationError {
	return &ValidationError{Message: message, Errors: append([]string(nil), e.Errors...)}
}

func newValidationError(errs ...string) *ValidationError {
	return &ValidationError{Message: DefaultMessage, Errors: errs}
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

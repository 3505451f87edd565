package model

import (
	"errors"
	"fmt"
)

// Standard error codes.
const (
	ErrNotFound         = "NOT_FOUND"
	ErrForbidden        = "FORBIDDEN"
	ErrConflict         = "CONFLICT"
	ErrValidationError  = "VALIDATION_ERROR"
	ErrInvalidAction    = "INVALID_ACTION"
	ErrStaleInteraction = "STALE_INTERACTION"
	ErrInternalError    = "INTERNAL_ERROR"
)

// ErrorEnvelope is the error type returned by the core for conditions that are
// reported back to the acting user. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(msg string, details ...FieldError) *ErrorEnvelope {
	if msg == "" {
		msg = "One or more fields are invalid"
	}
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: msg,
		Details: details,
	}
}

// NewInvalidActionError returns an INVALID_ACTION error for malformed
// component identifiers.
func NewInvalidActionError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidAction, Message: msg}
}

// NewStaleInteractionError returns a STALE_INTERACTION error for clicks on a
// control that no longer matches the current state.
func NewStaleInteractionError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrStaleInteraction, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// ErrorCode returns the envelope code of err, or "" if err does not wrap an
// ErrorEnvelope.
func ErrorCode(err error) string {
	var env *ErrorEnvelope
	if errors.As(err, &env) {
		return env.Code
	}
	return ""
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return ErrorCode(err) == ErrNotFound
}

// IsValidation reports whether err carries the VALIDATION_ERROR code.
func IsValidation(err error) bool {
	return ErrorCode(err) == ErrValidationError
}

// IsUserFacing reports whether err should be converted into a notice for the
// acting user instead of being propagated as an unhandled failure.
func IsUserFacing(err error) bool {
	switch ErrorCode(err) {
	case ErrNotFound, ErrForbidden, ErrConflict, ErrValidationError, ErrInvalidAction, ErrStaleInteraction:
		return true
	}
	return false
}

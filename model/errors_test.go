package model

import (
	"fmt"
	"testing"
)

func TestErrorEnvelope_Error(t *testing.T) {
	e := &ErrorEnvelope{Code: ErrNotFound, Message: "submission missing"}
	want := "NOT_FOUND: submission missing"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorEnvelope_implements_error(t *testing.T) {
	var _ error = (*ErrorEnvelope)(nil)
}

func TestNewNotFoundError(t *testing.T) {
	e := NewNotFoundError("resource missing")
	if e.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", e.Code, ErrNotFound)
	}
	if e.Message != "resource missing" {
		t.Errorf("Message = %q, want %q", e.Message, "resource missing")
	}
}

func TestNewValidationError(t *testing.T) {
	e := NewValidationError("", FieldError{Field: "answer", Code: "REQUIRED", Message: "answer is required"})
	if e.Code != ErrValidationError {
		t.Errorf("Code = %q, want %q", e.Code, ErrValidationError)
	}
	if e.Message == "" {
		t.Error("Message should default when empty")
	}
	if len(e.Details) != 1 || e.Details[0].Field != "answer" {
		t.Errorf("Details = %v", e.Details)
	}
}

func TestErrorCode_wrapped(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewNotFoundError("gone"))
	if !IsNotFound(err) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsValidation(err) {
		t.Error("IsValidation should be false")
	}
	if ErrorCode(fmt.Errorf("plain")) != "" {
		t.Error("plain errors have no code")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewNotFoundError("x"), true},
		{NewForbiddenError("x"), true},
		{NewValidationError("x"), true},
		{NewStaleInteractionError("x"), true},
		{NewInvalidActionError("x"), true},
		{NewInternalError(), false},
		{fmt.Errorf("disk full"), false},
	}
	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

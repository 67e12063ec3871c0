package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "validation failed" {
		t.Fatalf("expected generic message for nil error, got %q", err.Error())
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "required", "endsAt": "invalid"}}
	if got := withFields.Error(); got != "validation failed: endsAt, title" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := NewValidationError("first", "value")
	base.add("first", "ignored")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to be kept, got %q", got)
	}

	base.merge(&ValidationError{FieldErrors: map[string]string{"second": "another"}})
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}

	if (&ValidationError{}).orNil() != nil {
		t.Fatalf("expected empty validation error to collapse to nil")
	}
	if base.orNil() == nil {
		t.Fatalf("expected populated validation error to be returned")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                    nil,
		"forbidden":           fmt.Errorf("wrap: %w", ErrForbidden),
		"not_found":           ErrNotFound,
		"conflict":            ErrConflict,
		"already_exists":      ErrAlreadyExists,
		"unauthorized":        ErrUnauthorized,
		"invalid_credentials": ErrInvalidCredentials,
		"session_expired":     ErrSessionExpired,
		"session_revoked":     ErrSessionRevoked,
		"validation":          NewValidationError("field", "bad"),
		"unexpected":          errors.New("boom"),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Errorf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

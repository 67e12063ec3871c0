package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/hybrid-work/internal/application"
)

func TestHandleServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{err: application.NewValidationError("title", "title is required"), wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{err: application.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantCode: "AUTH_UNAUTHORIZED"},
		{err: fmt.Errorf("%w: token expired", application.ErrUnauthorized), wantStatus: http.StatusUnauthorized, wantCode: "AUTH_UNAUTHORIZED"},
		{err: application.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "AUTH_INVALID_CREDENTIALS"},
		{err: application.ErrSessionExpired, wantStatus: http.StatusUnauthorized, wantCode: "AUTH_SESSION_EXPIRED"},
		{err: application.ErrSessionRevoked, wantStatus: http.StatusUnauthorized, wantCode: "AUTH_SESSION_REVOKED"},
		{err: application.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "AUTH_FORBIDDEN"},
		{err: application.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{
			err:         fmt.Errorf("%w: desk already reserved for that time", application.ErrConflict),
			wantStatus:  http.StatusConflict,
			wantCode:    "CONFLICT",
			wantMessage: "desk already reserved for that time",
		},
		{err: application.ErrAlreadyExists, wantStatus: http.StatusConflict, wantCode: "ALREADY_EXISTS"},
		{err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR", wantMessage: "An internal server error occurred."},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.wantCode, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			newResponder(nil).handleServiceError(context.Background(), rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.ErrorCode)
			assert.NotEmpty(t, body.Message)
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, body.Message)
			}
		})
	}
}

func TestHandleServiceError_ValidationFields(t *testing.T) {
	t.Parallel()

	vErr := application.NewValidationError("startsAt", "startsAt must be before endsAt")
	vErr.Add("title", "title is required")

	rec := httptest.NewRecorder()
	newResponder(nil).handleServiceError(context.Background(), rec, fmt.Errorf("create event: %w", vErr))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"startsAt": "startsAt must be before endsAt",
		"title":    "title is required",
	}, body.Errors)
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	err := validateRequest(createUserRequest{Email: "nope", Password: "123"})
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name is required", vErr.FieldErrors["name"])
	assert.Equal(t, "email must be a valid address", vErr.FieldErrors["email"])
	assert.Equal(t, "username is required", vErr.FieldErrors["username"])
	assert.Equal(t, "password must be at least 6 characters long", vErr.FieldErrors["password"])

	err = validateRequest(createBlockRequest{Kind: "NAP"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "kind must be one of REST, FOCUS, OOO", vErr.FieldErrors["kind"])
	assert.Contains(t, vErr.FieldErrors, "startsAt")

	assert.NoError(t, validateRequest(upsertPresenceRequest{}))
}

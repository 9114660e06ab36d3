package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-admin/atrium/internal/shared"
)

func respond(t *testing.T, err error) (int, ErrorBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	RespondError(rec, err)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{shared.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{shared.ErrPasswordIncorrect, http.StatusUnauthorized, CodeInvalidCredentials},
		{shared.ErrAccountDisabled, http.StatusUnauthorized, CodeAccountDisabled},
		{shared.ErrEmailExists, http.StatusConflict, CodeEmailExists},
		{shared.ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken},
		{shared.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{shared.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{shared.ErrUserNotFound, http.StatusUnauthorized, CodeUserNotFound},
		{shared.ErrValidation, http.StatusBadRequest, CodeValidation},
		{shared.ErrNotFound, http.StatusNotFound, CodeNotFound},
	}
	for _, tc := range cases {
		status, body := respond(t, tc.err)
		assert.Equal(t, tc.status, status, tc.code)
		assert.Equal(t, tc.code, body.Error, tc.code)
		assert.NotEmpty(t, body.Message, tc.code)
	}
}

func TestRespondErrorWrapped(t *testing.T) {
	status, body := respond(t, fmt.Errorf("%w: invalid fields: email", shared.ErrValidation))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, body.Error)
	assert.Contains(t, body.Message, "email")
}

func TestRespondErrorPasswordIncorrectMessage(t *testing.T) {
	// Same code as a login failure, but the message fits the password form.
	status, body := respond(t, shared.ErrPasswordIncorrect)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, CodeInvalidCredentials, body.Error)
	assert.Equal(t, "current password is incorrect", body.Message)
}

func TestRespondErrorHidesInternals(t *testing.T) {
	status, body := respond(t, errors.New("pq: connection refused to 10.1.2.3"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, CodeInternal, body.Error)
	assert.NotContains(t, body.Message, "10.1.2.3")
}

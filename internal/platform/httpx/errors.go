package httpx

import (
	"errors"
	"net/http"

	"github.com/atrium-admin/atrium/internal/shared"
)

// Error codes exposed in the response envelope.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "INSUFFICIENT_PERMISSIONS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// RespondError maps domain errors to the {error, message} envelope with the
// matching HTTP status. Unrecognised errors become a generic INTERNAL_ERROR so
// internals never leak to clients.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, CodeInvalidCredentials, shared.ErrInvalidCredentials.Error())
	case errors.Is(err, shared.ErrPasswordIncorrect):
		Error(w, http.StatusUnauthorized, CodeInvalidCredentials, shared.ErrPasswordIncorrect.Error())
	case errors.Is(err, shared.ErrAccountDisabled):
		Error(w, http.StatusUnauthorized, CodeAccountDisabled, shared.ErrAccountDisabled.Error())
	case errors.Is(err, shared.ErrEmailExists):
		Error(w, http.StatusConflict, CodeEmailExists, shared.ErrEmailExists.Error())
	case errors.Is(err, shared.ErrInvalidToken):
		Error(w, http.StatusUnauthorized, CodeInvalidToken, shared.ErrInvalidToken.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, CodeUnauthorized, shared.ErrUnauthorized.Error())
	case errors.Is(err, shared.ErrForbidden):
		Error(w, http.StatusForbidden, CodeForbidden, shared.ErrForbidden.Error())
	case errors.Is(err, shared.ErrUserNotFound):
		Error(w, http.StatusUnauthorized, CodeUserNotFound, shared.ErrUserNotFound.Error())
	case errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, CodeNotFound, shared.ErrNotFound.Error())
	default:
		Error(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. The same value is
	// returned for an unknown email and a wrong password so callers cannot
	// enumerate registered accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrPasswordIncorrect indicates a failed current-password check on a
	// password change. Distinct from ErrInvalidCredentials so the envelope
	// message fits the password form rather than the login form.
	ErrPasswordIncorrect = errors.New("current password is incorrect")
	// ErrAccountDisabled indicates the account exists but is deactivated.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrEmailExists indicates a registration conflict on the email key.
	ErrEmailExists = errors.New("email is already registered")
	// ErrInvalidToken indicates a malformed, tampered or expired token.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrUnauthorized indicates a missing bearer token.
	ErrUnauthorized = errors.New("access token required")
	// ErrForbidden indicates the caller's role does not permit the action.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrUserNotFound indicates token claims reference a deleted account.
	ErrUserNotFound = errors.New("user no longer exists")
	// ErrValidation indicates malformed request input.
	ErrValidation = errors.New("validation failed")
)

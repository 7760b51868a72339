package auth

import "errors"

// Error taxonomy shared by every layer. Callers wrap these with
// fmt.Errorf("%w: ...") and the HTTP layer maps them with errors.Is.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal error")

	// ErrInvalidCredentials is returned for both unknown login ids and wrong
	// passwords.
	ErrInvalidCredentials = errors.New("login id or password is incorrect")

	// ErrTooManyAttempts is returned while a login id is locked out.
	ErrTooManyAttempts = errors.New("too many failed login attempts")
)

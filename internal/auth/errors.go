package auth

import "errors"

var (
	ErrNoSession         = errors.New("no active session")
	ErrSessionExpired    = errors.New("session expired")
	ErrInvalidCredential = errors.New("invalid identity credential")
	ErrForbidden         = errors.New("admin access required")
	ErrInvalidEmail      = errors.New("invalid email")
)

// AuthError means the caller has to sign in again. Msg is safe to show.
type AuthError struct {
	Err error
	Msg string
}

func (e *AuthError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

func unauthenticated(err error, msg string) error {
	return &AuthError{Err: err, Msg: msg}
}

// IsAuth reports whether err requires a new sign-in.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

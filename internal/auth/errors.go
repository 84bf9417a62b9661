package auth

import (
	"errors"
	"net/http"
)

// Error codes reported by providers
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeSessionMissing     = "session_missing"
	CodeProviderError      = "provider_error"
)

// Error is a failure reported by the auth service. Message is shown to the
// user verbatim.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors by code so wrapped provider messages still compare equal
// to the sentinels below
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Invalid login credentials", Status: http.StatusBadRequest}
	ErrNoSession          = &Error{Code: CodeSessionMissing, Message: "Auth session missing!", Status: http.StatusUnauthorized}

	// ErrNotConfigured is returned by the disabled provider
	ErrNotConfigured = errors.New("authentication service not configured")
)

// Package auth provides cookie sessions and role-based access control for Hedgehog.
package auth

import (
	"errors"
	"net/http"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
)

// Session errors.
var (
	// ErrNoSession indicates the request carries no session cookie.
	ErrNoSession = errors.New("no session")

	// ErrInvalidSession indicates the session cookie is malformed, tampered with or expired.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidSessionKey indicates the configured signing key has the wrong size.
	ErrInvalidSessionKey = errors.New("session key must be 32 bytes")
)

// Denial reasons reported to the DenialRecorder.
const (
	DenialAnonymous = "anonymous"
	DenialForbidden = "forbidden"
)

// authError maps a gate denial to its HTTP response.
type authError struct {
	Err        error
	HTTPStatus int
	Message    string
	Reason     string
}

func (e authError) Error() string { return e.Err.Error() }

func (e authError) Unwrap() error { return e.Err }

var (
	errAuthenticationRequired = authError{
		Err:        domain.ErrUnauthorized,
		HTTPStatus: http.StatusUnauthorized,
		Message:    "Authentication required.",
		Reason:     DenialAnonymous,
	}
	errAdminRequired = authError{
		Err:        domain.ErrForbidden,
		HTTPStatus: http.StatusForbidden,
		Message:    "Administrator access required.",
		Reason:     DenialForbidden,
	}
)

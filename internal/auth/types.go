package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Identity
// =============================================================================

// Identity describes the authenticated caller of a request.
type Identity struct {
	// UserID is the account identifier carried in the token subject.
	UserID uuid.UUID

	// Username is the login name.
	Username string

	// DisplayName is the human-readable name, falling back to Username.
	DisplayName string

	// IsAdmin reports whether the caller holds the Admin role.
	IsAdmin bool

	// IssuedAt is when the session token was signed.
	IssuedAt time.Time

	// ExpiresAt is when the session token stops being accepted.
	ExpiresAt time.Time
}

// Caller returns the name used for the caller in logs.
func (id *Identity) Caller() string {
	if id == nil {
		return "Anonymous"
	}
	return id.Username
}

// =============================================================================
// Context
// =============================================================================

// identityContextKey is the context key for Identity.
type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext retrieves the Identity from a request context.
// It returns nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityContextKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// Package domain contains the core business entities for Hedgehog Panel.
// These are pure Go structs with no infrastructure dependencies, representing
// the accounts and servers administered through the panel.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// AdminUsername is the distinguished account that holds administrative privileges.
	AdminUsername = "admin"

	// MaxUsernameLength is the longest accepted username.
	MaxUsernameLength = 64

	// MaxPasswordLength is the longest accepted password.
	MaxPasswordLength = 256
)

// User represents a registered account in the panel.
type User struct {
	// ID is the unique identifier for the user, issued by the identifier allocator.
	ID uuid.UUID `json:"guid"`

	// Username is the unique login name. Lookups are case-insensitive.
	// It cannot change after creation.
	Username string `json:"username"`

	// Email is the unique email address for the user.
	Email string `json:"email"`

	// FirstName, MiddleName and LastName are optional; empty means unset.
	FirstName  string `json:"firstName,omitempty"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName,omitempty"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser creates a new User with default values.
func NewUser(id uuid.UUID, username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DisplayName joins the non-blank name parts with spaces.
// It returns an empty string when no name part is set.
func (u *User) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// IsAdmin reports whether this is the distinguished admin account.
// Admin-ness is derived from the username alone and is not stored.
func (u *User) IsAdmin() bool {
	return IsAdminUsername(u.Username)
}

// IsAdminUsername reports whether username names the distinguished admin account.
func IsAdminUsername(username string) bool {
	return strings.EqualFold(strings.TrimSpace(username), AdminUsername)
}

// ValidateUsername checks the login username rules: 1-64 characters drawn
// from ASCII letters, digits, '.', '_' and '-'.
func ValidateUsername(username string) error {
	if username == "" || len(username) > MaxUsernameLength {
		return ErrInvalidUsername
	}
	for i := 0; i < len(username); i++ {
		c := username[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

// ValidatePassword checks that a password is non-empty and within the length cap.
func ValidatePassword(password string) error {
	if password == "" || len(password) > MaxPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}

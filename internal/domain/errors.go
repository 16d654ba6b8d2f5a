package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).
// Handlers map them to HTTP status codes with errors.Is.

var (
	// ===========================================
	// Error Categories
	// ===========================================

	// ErrInvalidInput indicates a malformed or missing request field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates bad credentials or a missing session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller is authenticated but lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates the target row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreFailure indicates an unexpected store-layer error.
	ErrStoreFailure = errors.New("store failure")

	// ErrRateLimited indicates the caller exceeded an attempt budget.
	ErrRateLimited = errors.New("too many attempts")

	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrUserAlreadyExists indicates a user with the same username/email exists.
	ErrUserAlreadyExists = fmt.Errorf("%w: user already exists", ErrConflict)

	// ErrInvalidUsername indicates the username is blank, too long or has forbidden characters.
	ErrInvalidUsername = fmt.Errorf("%w: username must be 1-%d characters of letters, digits, '.', '_' or '-'", ErrInvalidInput, MaxUsernameLength)

	// ErrInvalidEmail indicates the email address does not parse.
	ErrInvalidEmail = fmt.Errorf("%w: invalid email format", ErrInvalidInput)

	// ErrInvalidPassword indicates the password is empty or too long.
	ErrInvalidPassword = fmt.Errorf("%w: password must be 1-%d characters", ErrInvalidInput, MaxPasswordLength)

	// ErrProtectedAccount indicates an operation targeted the built-in admin account.
	ErrProtectedAccount = errors.New("cannot delete built-in admin user")

	// ===========================================
	// Server Errors
	// ===========================================

	// ErrServerNotFound indicates the requested server does not exist.
	ErrServerNotFound = fmt.Errorf("server %w", ErrNotFound)

	// ErrInvalidServerName indicates the server name is blank.
	ErrInvalidServerName = fmt.Errorf("%w: name is required", ErrInvalidInput)

	// ErrInvalidServerID indicates the server id is not a UUID.
	ErrInvalidServerID = fmt.Errorf("%w: invalid server id", ErrInvalidInput)

	// ErrOwnerNotFound indicates the requested owner account does not exist.
	ErrOwnerNotFound = fmt.Errorf("%w: owner account not found", ErrInvalidInput)
)

// Package repository defines data access interfaces for the Hedgehog panel.
// These interfaces abstract database operations, allowing for different implementations
// (PostgreSQL, embedded SQLite) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
// Every statement is parameterized; input never reaches SQL text.
type UserRepository interface {
	// Create inserts a new user. Returns domain.ErrUserAlreadyExists when the
	// username or email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByUsername retrieves a user by username, ignoring case.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update writes the email and name fields of an existing user, matched by
	// username. The password hash is replaced only when newPasswordHash is non-nil.
	Update(ctx context.Context, user *domain.User, newPasswordHash *string) error

	// Delete removes a user by username. It reports whether a row was removed.
	Delete(ctx context.Context, username string) (bool, error)

	// List returns users newest first with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)
}

// =============================================================================
// Server Repository
// =============================================================================

// ServerRepository defines the interface for server data access.
type ServerRepository interface {
	// Create inserts the server and, when ownerID is non-nil, its ownership
	// link in a single transaction. On success server.OwnerUsername is set
	// from the linked account.
	Create(ctx context.Context, server *domain.Server, ownerID *uuid.UUID) error

	// List returns servers ordered by ID, each with the username of its
	// earliest-assigned owner.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Server], error)

	// ListByOwner returns the servers a user holds an ownership link on.
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]*domain.Server, error)

	// Delete removes a server and, by cascade, its ownership links.
	// It reports whether a row was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

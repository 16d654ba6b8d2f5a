package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
	"github.com/hedgehog-panel/hedgehog/internal/repository"
)

const userColumns = `uuid, username, email, firstname, middlename, lastname, password_hash, created_at, updated_at`

// userRepository implements repository.UserRepository.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		nullableString(user.FirstName),
		nullableString(user.MiddleName),
		nullableString(user.LastName),
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username or email already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uuid = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username, ignoring case.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// Update updates the profile fields of an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User, newPasswordHash *string) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $1, firstname = $2, middlename = $3, lastname = $4, updated_at = $5,
		    password_hash = COALESCE($6, password_hash)
		WHERE lower(username) = lower($7)
	`

	result, err := r.db.Pool.Exec(ctx, query,
		user.Email,
		nullableString(user.FirstName),
		nullableString(user.MiddleName),
		nullableString(user.LastName),
		user.UpdatedAt,
		newPasswordHash,
		user.Username,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	if newPasswordHash != nil {
		user.PasswordHash = *newPasswordHash
	}
	return nil
}

// Delete deletes a user by username.
func (r *userRepository) Delete(ctx context.Context, username string) (bool, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE lower(username) = lower($1)`, username)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// List returns all users with pagination.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, username ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return &repository.ListResult[domain.User]{
		Items:  users,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user                domain.User
		first, middle, last *string
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&first,
		&middle,
		&last,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.FirstName = derefString(first)
	user.MiddleName = derefString(middle)
	user.LastName = derefString(last)
	return &user, nil
}

// nullableString stores empty strings as NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)

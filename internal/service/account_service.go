package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
	"github.com/hedgehog-panel/hedgehog/internal/repository"
)

const (
	// DefaultListLimit is used when a list request names no limit.
	DefaultListLimit = 100

	// MaxListLimit caps every list request.
	MaxListLimit = 500
)

// AccountService handles credential verification and user management.
type AccountService struct {
	userRepo   repository.UserRepository
	ids        IDAllocator
	bcryptCost int
	dummyHash  []byte
	logger     zerolog.Logger
}

// NewAccountService creates a new AccountService.
// Costs below bcrypt.MinCost fall back to bcrypt.DefaultCost.
func NewAccountService(userRepo repository.UserRepository, ids IDAllocator, bcryptCost int, logger zerolog.Logger) *AccountService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}

	// Compared against when the username is unknown so both failure paths cost the same.
	dummyHash, _ := hashPassword("hedgehog-timing-equalizer", bcryptCost)

	return &AccountService{
		userRepo:   userRepo,
		ids:        ids,
		bcryptCost: bcryptCost,
		dummyHash:  []byte(dummyHash),
		logger:     logger.With().Str("service", "account").Logger(),
	}
}

// Authenticate verifies user credentials and returns the user.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = comparePassword(s.dummyHash, password)
			s.logger.Debug().Str("username", username).Msg("unknown user during authentication")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to load user for authentication")
		return nil, storeError(err)
	}

	if err := comparePassword([]byte(user.PasswordHash), password); err != nil {
		s.logger.Debug().Str("username", username).Msg("invalid password during authentication")
		return nil, ErrInvalidCredentials
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Msg("user authenticated")

	return user, nil
}

// GetByUsername retrieves a user by username, ignoring case.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrUserNotFound
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to get user")
		return nil, storeError(err)
	}
	return user, nil
}

// CreateUserInput contains the data needed to create a new user.
type CreateUserInput struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	MiddleName string
	LastName   string
}

// CreateUserOutput contains the result of creating a user.
type CreateUserOutput struct {
	User *domain.User
}

// Create creates a new user account.
func (s *AccountService) Create(ctx context.Context, input CreateUserInput) (*CreateUserOutput, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(input.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, storeError(fmt.Errorf("failed to hash password: %w", err))
	}

	user := domain.NewUser(s.ids.Allocate(), input.Username, input.Email, passwordHash)
	user.FirstName = strings.TrimSpace(input.FirstName)
	user.MiddleName = strings.TrimSpace(input.MiddleName)
	user.LastName = strings.TrimSpace(input.LastName)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, storeError(err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Msg("user created")

	return &CreateUserOutput{User: user}, nil
}

// UpdateUserInput contains the fields to change on an existing user.
// Nil fields are left unchanged.
type UpdateUserInput struct {
	Username    string
	Email       *string
	FirstName   *string
	MiddleName  *string
	LastName    *string
	NewPassword *string
}

// Update applies a partial profile update. The password hash is kept unless
// NewPassword is set.
func (s *AccountService) Update(ctx context.Context, input UpdateUserInput) (*domain.User, error) {
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.ErrInvalidEmail
		}
		input.Email = &email
	}
	if input.NewPassword != nil {
		if err := domain.ValidatePassword(*input.NewPassword); err != nil {
			return nil, err
		}
	}

	user, err := s.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.MiddleName != nil {
		user.MiddleName = strings.TrimSpace(*input.MiddleName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}

	var newHash *string
	if input.NewPassword != nil {
		hash, err := hashPassword(*input.NewPassword, s.bcryptCost)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to hash password")
			return nil, storeError(fmt.Errorf("failed to hash password: %w", err))
		}
		newHash = &hash
	}

	if err := s.userRepo.Update(ctx, user, newHash); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", user.Username).Msg("failed to update user")
		return nil, storeError(err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Bool("password_changed", newHash != nil).
		Msg("user updated")

	return user, nil
}

// Delete removes a user account. The built-in admin account cannot be deleted.
// It reports whether an account was removed.
func (s *AccountService) Delete(ctx context.Context, username string) (bool, error) {
	if domain.IsAdminUsername(username) {
		return false, domain.ErrProtectedAccount
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return false, nil
	}

	deleted, err := s.userRepo.Delete(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to delete user")
		return false, storeError(err)
	}

	if deleted {
		s.logger.Info().Str("username", username).Msg("user deleted")
	}
	return deleted, nil
}

// ListUsersInput contains pagination options for listing users.
type ListUsersInput struct {
	Limit  int
	Offset int
}

// ListUsersOutput contains the result of listing users.
type ListUsersOutput struct {
	Users      []*domain.User
	TotalCount int64
}

// List returns users newest first with pagination.
func (s *AccountService) List(ctx context.Context, input ListUsersInput) (*ListUsersOutput, error) {
	opts := normalizeListOptions(input.Limit, input.Offset)

	result, err := s.userRepo.List(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, storeError(err)
	}

	return &ListUsersOutput{
		Users:      result.Items,
		TotalCount: result.Total,
	}, nil
}

// EnsureAdmin creates the built-in admin account when it does not exist.
// It reports whether the account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.GetByUsername(ctx, domain.AdminUsername)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	_, err = s.Create(ctx, CreateUserInput{
		Username: domain.AdminUsername,
		Email:    email,
		Password: password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, err
	}

	s.logger.Warn().Msg("bootstrap admin account created")
	return true, nil
}

// validateCreateInput validates the input for creating a user.
func validateCreateInput(input CreateUserInput) error {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return fmt.Errorf("%w: username, email and password are required", domain.ErrInvalidInput)
	}

	if err := domain.ValidateUsername(input.Username); err != nil {
		return err
	}

	if _, err := mail.ParseAddress(input.Email); err != nil {
		return domain.ErrInvalidEmail
	}

	return domain.ValidatePassword(input.Password)
}

// normalizeListOptions applies the default and maximum page sizes.
func normalizeListOptions(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

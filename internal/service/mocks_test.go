package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
	"github.com/hedgehog-panel/hedgehog/internal/repository"
)

// =============================================================================
// Mock Types
// =============================================================================

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User, newPasswordHash *string) error {
	args := m.Called(ctx, user, newPasswordHash)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListResult[domain.User]), args.Error(1)
}

type mockServerRepository struct {
	mock.Mock
}

func (m *mockServerRepository) Create(ctx context.Context, server *domain.Server, ownerID *uuid.UUID) error {
	args := m.Called(ctx, server, ownerID)
	return args.Error(0)
}

func (m *mockServerRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Server], error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListResult[domain.Server]), args.Error(1)
}

func (m *mockServerRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]*domain.Server, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Server), args.Error(1)
}

func (m *mockServerRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// sequenceAllocator returns uuid.New values and remembers them.
type sequenceAllocator struct {
	mu     sync.Mutex
	issued []uuid.UUID
}

func (a *sequenceAllocator) Allocate() uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := uuid.New()
	a.issued = append(a.issued, id)
	return id
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
	"github.com/hedgehog-panel/hedgehog/internal/repository"
)

// ServerService manages the server catalog.
type ServerService struct {
	serverRepo repository.ServerRepository
	userRepo   repository.UserRepository
	ids        IDAllocator
	logger     zerolog.Logger
}

// NewServerService creates a new ServerService.
func NewServerService(
	serverRepo repository.ServerRepository,
	userRepo repository.UserRepository,
	ids IDAllocator,
	logger zerolog.Logger,
) *ServerService {
	return &ServerService{
		serverRepo: serverRepo,
		userRepo:   userRepo,
		ids:        ids,
		logger:     logger.With().Str("service", "server").Logger(),
	}
}

// CreateServerInput contains the data needed to create a server.
// The owner may be given by ID or by username; OwnerID wins when both are set.
type CreateServerInput struct {
	Name          string
	Description   *string
	OwnerID       *uuid.UUID
	OwnerUsername string
}

// CreateServerOutput contains the result of creating a server.
type CreateServerOutput struct {
	Server *domain.Server
}

// Create adds a server and, when an owner is given, its ownership link.
// The owner is resolved before anything is written.
func (s *ServerService) Create(ctx context.Context, input CreateServerInput) (*CreateServerOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrInvalidServerName
	}

	var description *string
	if input.Description != nil {
		if d := strings.TrimSpace(*input.Description); d != "" {
			description = &d
		}
	}

	ownerID, err := s.resolveOwner(ctx, input)
	if err != nil {
		return nil, err
	}

	server := domain.NewServer(s.ids.Allocate(), name, description)
	if err := s.serverRepo.Create(ctx, server, ownerID); err != nil {
		if errors.Is(err, domain.ErrOwnerNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create server")
		return nil, storeError(err)
	}

	event := s.logger.Info().
		Str("server_id", server.ID.String()).
		Str("name", server.Name)
	if server.OwnerUsername != nil {
		event = event.Str("owner", *server.OwnerUsername)
	}
	event.Msg("server created")

	return &CreateServerOutput{Server: server}, nil
}

func (s *ServerService) resolveOwner(ctx context.Context, input CreateServerInput) (*uuid.UUID, error) {
	var (
		owner *domain.User
		err   error
	)

	switch {
	case input.OwnerID != nil:
		owner, err = s.userRepo.GetByID(ctx, *input.OwnerID)
	case strings.TrimSpace(input.OwnerUsername) != "":
		owner, err = s.userRepo.GetByUsername(ctx, strings.TrimSpace(input.OwnerUsername))
	default:
		return nil, nil
	}

	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrOwnerNotFound
		}
		s.logger.Error().Err(err).Msg("failed to resolve server owner")
		return nil, storeError(err)
	}
	return &owner.ID, nil
}

// ListServersInput contains pagination options for listing servers.
type ListServersInput struct {
	Limit  int
	Offset int
}

// ListServersOutput contains the result of listing servers.
type ListServersOutput struct {
	Servers    []*domain.Server
	TotalCount int64
}

// List returns servers ordered by ID.
func (s *ServerService) List(ctx context.Context, input ListServersInput) (*ListServersOutput, error) {
	result, err := s.serverRepo.List(ctx, normalizeListOptions(input.Limit, input.Offset))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list servers")
		return nil, storeError(err)
	}

	return &ListServersOutput{
		Servers:    result.Items,
		TotalCount: result.Total,
	}, nil
}

// ListForOwner returns the servers the given user owns.
func (s *ServerService) ListForOwner(ctx context.Context, userID uuid.UUID) ([]*domain.Server, error) {
	servers, err := s.serverRepo.ListByOwner(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list owned servers")
		return nil, storeError(err)
	}
	return servers, nil
}

// Delete removes a server. It reports whether a server was removed.
func (s *ServerService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.serverRepo.Delete(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("server_id", id.String()).Msg("failed to delete server")
		return false, storeError(err)
	}

	if deleted {
		s.logger.Info().Str("server_id", id.String()).Msg("server deleted")
	}
	return deleted, nil
}

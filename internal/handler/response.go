package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
)

// =============================================================================
// Request Types
// =============================================================================

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
}

type updateUserRequest struct {
	Email      *string `json:"email"`
	FirstName  *string `json:"firstName"`
	MiddleName *string `json:"middleName"`
	LastName   *string `json:"lastName"`
	Password   *string `json:"password"`
}

type createServerRequest struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	OwnerUsername string  `json:"ownerUsername"`
	OwnerID       *string `json:"ownerId"`
}

// =============================================================================
// Response Types
// =============================================================================

type successResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type meResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

type serverSummaryResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type userResponse struct {
	GUID       uuid.UUID `json:"guid"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	FirstName  string    `json:"firstName,omitempty"`
	MiddleName string    `json:"middleName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	IsAdmin    bool      `json:"isAdmin"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type serverResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	OwnerUsername *string   `json:"ownerUsername"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newUserResponse(u *domain.User) userResponse {
	name := u.DisplayName()
	if name == "" {
		name = u.Username
	}
	return userResponse{
		GUID:       u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Name:       name,
		FirstName:  u.FirstName,
		MiddleName: u.MiddleName,
		LastName:   u.LastName,
		IsAdmin:    u.IsAdmin(),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func newServerResponse(s *domain.Server) serverResponse {
	return serverResponse{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		OwnerUsername: s.OwnerUsername,
		CreatedAt:     s.CreatedAt,
	}
}

// =============================================================================
// Writers
// =============================================================================

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response with the given status and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service error to its HTTP response.
// Store failures are logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status, message := mapError(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, message)
}

// mapError converts a domain error to an HTTP status and client message.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrProtectedAccount):
		return http.StatusBadRequest, "Cannot delete built-in admin user."
	case errors.Is(err, domain.ErrOwnerNotFound):
		return http.StatusBadRequest, "Owner username not found."
	case errors.Is(err, domain.ErrInvalidServerID):
		return http.StatusBadRequest, "Invalid server id."
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid credentials."
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Forbidden."
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found."
	case errors.Is(err, domain.ErrServerNotFound):
		return http.StatusNotFound, "Server not found."
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found."
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "User with the same email already exists."
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many login attempts. Try again later."
	default:
		return http.StatusInternalServerError, "Internal server error."
	}
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

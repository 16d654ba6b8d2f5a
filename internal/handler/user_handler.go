package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/auth"
	"github.com/hedgehog-panel/hedgehog/internal/service"
)

// UserHandler handles the admin user management API.
type UserHandler struct {
	accounts *service.AccountService
	logger   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts *service.AccountService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		logger:   logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes registers the user routes on an admin-only router.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.List)
	r.Post("/users", h.Create)
	r.Get("/users/{username}", h.Get)
	r.Put("/users/{username}", h.Update)
	r.Delete("/users/{username}", h.Delete)
}

// List handles GET /api/admin/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(w, r)
	if !ok {
		return
	}

	out, err := h.accounts.List(r.Context(), service.ListUsersInput{Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	users := make([]userResponse, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, newUserResponse(u))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(out.TotalCount, 10))
	writeJSON(w, http.StatusOK, users)
}

// Get handles GET /api/admin/users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Create handles POST /api/admin/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	out, err := h.accounts.Create(r.Context(), service.CreateUserInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("username", req.Username).Str("by", auth.FromContext(r.Context()).Caller()).Msg("user creation rejected")
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(out.User))
}

// Update handles PUT /api/admin/users/{username}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.accounts.Update(r.Context(), service.UpdateUserInput{
		Username:    chi.URLParam(r, "username"),
		Email:       req.Email,
		FirstName:   req.FirstName,
		MiddleName:  req.MiddleName,
		LastName:    req.LastName,
		NewPassword: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Delete handles DELETE /api/admin/users/{username}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	deleted, err := h.accounts.Delete(r.Context(), username)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "User not found.")
		return
	}

	h.logger.Info().Str("username", username).Str("by", auth.FromContext(r.Context()).Caller()).Msg("user removed")
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// parsePage reads the limit and offset query parameters. It writes a 400
// response and returns false when either is malformed.
func parsePage(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	query := r.URL.Query()

	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit.")
			return 0, 0, false
		}
		limit = n
	}
	if v := query.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid offset.")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

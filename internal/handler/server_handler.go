package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/auth"
	"github.com/hedgehog-panel/hedgehog/internal/domain"
	"github.com/hedgehog-panel/hedgehog/internal/service"
)

// Placeholder values reported by the per-user server listing.
const (
	summaryOwner  = "You"
	summaryRole   = "Owner"
	summaryStatus = "Unknown"
)

// ServerHandler handles the server catalog API.
type ServerHandler struct {
	servers *service.ServerService
	logger  zerolog.Logger
}

// NewServerHandler creates a new ServerHandler.
func NewServerHandler(servers *service.ServerService, logger zerolog.Logger) *ServerHandler {
	return &ServerHandler{
		servers: servers,
		logger:  logger.With().Str("handler", "server").Logger(),
	}
}

// RegisterAdminRoutes registers the server routes on an admin-only router.
func (h *ServerHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/servers", h.List)
	r.Post("/servers", h.Create)
	r.Delete("/servers/{id}", h.Delete)
}

// ListMine handles GET /api/servers. It never fails: anonymous callers and
// store errors both get an empty list.
func (h *ServerHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	summaries := []serverSummaryResponse{}

	id := auth.FromContext(r.Context())
	if id == nil {
		h.logger.Warn().Str("ip", auth.ClientIP(r)).Msg("server list requested without a session, returning empty list")
		writeJSON(w, http.StatusOK, summaries)
		return
	}

	servers, err := h.servers.ListForOwner(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error().Err(err).Str("username", id.Username).Msg("failed to load servers, returning empty list")
		writeJSON(w, http.StatusOK, summaries)
		return
	}

	for _, s := range servers {
		summaries = append(summaries, serverSummaryResponse{
			ID:     s.ID.String(),
			Name:   s.Name,
			Owner:  summaryOwner,
			Role:   summaryRole,
			Status: summaryStatus,
		})
	}

	h.logger.Debug().Str("username", id.Username).Int("count", len(summaries)).Msg("returning owned servers")
	writeJSON(w, http.StatusOK, summaries)
}

// List handles GET /api/admin/servers.
func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(w, r)
	if !ok {
		return
	}

	out, err := h.servers.List(r.Context(), service.ListServersInput{Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	servers := make([]serverResponse, 0, len(out.Servers))
	for _, s := range out.Servers {
		servers = append(servers, newServerResponse(s))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(out.TotalCount, 10))
	writeJSON(w, http.StatusOK, servers)
}

// Create handles POST /api/admin/servers.
func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createServerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	input := service.CreateServerInput{
		Name:          req.Name,
		Description:   req.Description,
		OwnerUsername: req.OwnerUsername,
	}
	if req.OwnerID != nil && strings.TrimSpace(*req.OwnerID) != "" {
		ownerID, err := uuid.Parse(strings.TrimSpace(*req.OwnerID))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid owner id.")
			return
		}
		input.OwnerID = &ownerID
	}

	out, err := h.servers.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newServerResponse(out.Server))
}

// Delete handles DELETE /api/admin/servers/{id}.
func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, domain.ErrInvalidServerID)
		return
	}

	deleted, err := h.servers.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Server not found.")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

package handler

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/auth"
	"github.com/hedgehog-panel/hedgehog/internal/domain"
	"github.com/hedgehog-panel/hedgehog/internal/metrics"
	"github.com/hedgehog-panel/hedgehog/internal/ratelimit"
	"github.com/hedgehog-panel/hedgehog/internal/service"
)

// AuthHandler handles login, logout and identity requests.
type AuthHandler struct {
	accounts *service.AccountService
	sessions *auth.SessionManager
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	accounts *service.AccountService,
	sessions *auth.SessionManager,
	limiter ratelimit.Limiter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AuthHandler {
	if limiter == nil {
		limiter = ratelimit.NewNoOpLimiter()
	}
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		limiter:  limiter,
		metrics:  m,
		logger:   logger.With().Str("handler", "auth").Logger(),
	}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.metrics.LoginAttempt(metrics.LoginInvalid)
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	username := strings.TrimSpace(req.Username)
	password := req.Password

	if username == "" || strings.TrimSpace(password) == "" {
		h.metrics.LoginAttempt(metrics.LoginInvalid)
		writeError(w, http.StatusBadRequest, "Missing username or password.")
		return
	}
	if utf8.RuneCountInString(username) > domain.MaxUsernameLength || utf8.RuneCountInString(password) > domain.MaxPasswordLength {
		h.metrics.LoginAttempt(metrics.LoginInvalid)
		writeError(w, http.StatusBadRequest, "Invalid credentials.")
		return
	}
	if err := domain.ValidateUsername(username); err != nil {
		h.metrics.LoginAttempt(metrics.LoginInvalid)
		writeError(w, http.StatusBadRequest, "Invalid username format.")
		return
	}

	clientIP := auth.ClientIP(r)
	limitKey := ratelimit.Keys.Login(clientIP)

	allowed, err := h.limiter.Allow(r.Context(), limitKey)
	if err != nil {
		h.logger.Error().Err(err).Str("ip", clientIP).Msg("login limiter unavailable, allowing attempt")
		allowed = true
	}
	if !allowed {
		h.metrics.LoginAttempt(metrics.LoginThrottled)
		h.logger.Warn().Str("username", username).Str("ip", clientIP).Msg("login attempt throttled")
		writeServiceError(w, h.logger, domain.ErrRateLimited)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.metrics.LoginAttempt(metrics.LoginFailure)
			h.logger.Warn().Str("username", username).Str("ip", clientIP).Msg("failed to authenticate user")
		}
		writeServiceError(w, h.logger, err)
		return
	}

	if _, err := h.sessions.Issue(w, r, user); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.limiter.Reset(r.Context(), limitKey); err != nil {
		h.logger.Error().Err(err).Str("ip", clientIP).Msg("failed to reset login limiter")
	}

	h.metrics.LoginAttempt(metrics.LoginSuccess)
	h.logger.Info().Str("username", user.Username).Str("ip", clientIP).Msg("user logged in")

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	h.sessions.Invalidate(w, r)

	h.logger.Info().Str("username", id.Caller()).Msg("user logged out")
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	if id == nil {
		h.logger.Warn().Str("ip", auth.ClientIP(r)).Msg("unauthenticated request to /api/me")
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Username:    id.Username,
		DisplayName: id.DisplayName,
		IsAdmin:     id.IsAdmin,
	})
}

package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// View paths handled by the view gate.
const (
	LoginPath = "/login"
	HomePath  = "/"
	AdminPath = "/admin"
)

// DenialRecorder counts gate rejections.
type DenialRecorder interface {
	AccessDenied(reason string)
}

// Gate resolves the caller of each request and enforces roles.
type Gate struct {
	sessions *SessionManager
	recorder DenialRecorder
	logger   zerolog.Logger
}

// NewGate creates a new Gate. recorder may be nil.
func NewGate(sessions *SessionManager, recorder DenialRecorder, logger zerolog.Logger) *Gate {
	return &Gate{
		sessions: sessions,
		recorder: recorder,
		logger:   logger.With().Str("component", "gate").Logger(),
	}
}

// Resolve attaches the caller's Identity to the request context and slides
// the session expiration. Requests without a valid session continue anonymous.
func (g *Gate) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.sessions.Introspect(r)
		if err != nil {
			if errors.Is(err, ErrInvalidSession) {
				g.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("discarding invalid session cookie")
				g.sessions.Invalidate(w, r)
			}
			next.ServeHTTP(w, r)
			return
		}

		if refreshed, err := g.sessions.Refresh(w, r, id); err != nil {
			g.logger.Error().Err(err).Str("username", id.Username).Msg("failed to refresh session")
		} else {
			id = refreshed
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin rejects API requests that are anonymous (401) or come from a
// non-admin caller (403).
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())

		switch {
		case id == nil:
			g.deny(r, id, errAuthenticationRequired)
			writeAuthError(w, errAuthenticationRequired)
			return
		case !id.IsAdmin:
			g.deny(r, id, errAdminRequired)
			writeAuthError(w, errAdminRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Views guards the HTML shell pages. Anonymous callers are sent to the login
// page, signed-in callers are sent away from it, and non-admins get a plain
// 403 on the admin page.
func (g *Gate) Views(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())
		path := r.URL.Path

		if path == LoginPath {
			if id != nil {
				http.Redirect(w, r, HomePath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if id == nil {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}

		if isAdminView(path) && !id.IsAdmin {
			g.deny(r, id, errAdminRequired)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("Forbidden"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// deny logs and counts a rejected request.
func (g *Gate) deny(r *http.Request, id *Identity, denial authError) {
	g.logger.Warn().
		Err(denial).
		Str("user", id.Caller()).
		Str("path", r.URL.Path).
		Str("ip", ClientIP(r)).
		Str("reason", denial.Reason).
		Msg("access denied")

	if g.recorder != nil {
		g.recorder.AccessDenied(denial.Reason)
	}
}

func isAdminView(path string) bool {
	return path == AdminPath || strings.HasPrefix(path, AdminPath+"/")
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeAuthError writes a JSON error response.
func writeAuthError(w http.ResponseWriter, authErr authError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": authErr.Message})
}

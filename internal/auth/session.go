package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
	"github.com/hedgehog-panel/hedgehog/internal/pkg/crypto"
)

// SessionConfig contains configuration for the session manager.
type SessionConfig struct {
	// Key signs session tokens. A random key is generated when nil.
	Key []byte

	// TTL is the session lifetime and the cookie Max-Age.
	TTL time.Duration

	// CookieName is the name of the session cookie.
	CookieName string

	// Secure forces the Secure cookie attribute even on plain HTTP requests.
	Secure bool
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithClock replaces the time source used to sign and verify tokens.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// sessionClaims is the payload of the session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	DisplayName string `json:"name"`
	Admin       bool   `json:"admin"`
}

// SessionManager issues and verifies signed session cookies.
// Sessions are stateless: the cookie carries the whole identity.
type SessionManager struct {
	key        []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
	parser     *jwt.Parser
	logger     zerolog.Logger
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(cfg SessionConfig, logger zerolog.Logger, opts ...SessionOption) (*SessionManager, error) {
	logger = logger.With().Str("component", "session").Logger()

	key := cfg.Key
	if key == nil {
		generated, err := crypto.GenerateSessionKey()
		if err != nil {
			return nil, err
		}
		key = generated
		logger.Warn().Msg("no session key configured, using a random key; sessions will not survive a restart")
	}
	if len(key) != crypto.SessionKeySize {
		return nil, ErrInvalidSessionKey
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if cfg.CookieName == "" {
		return nil, fmt.Errorf("session cookie name is required")
	}

	m := &SessionManager{
		key:        key,
		ttl:        cfg.TTL,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	return m, nil
}

// Issue signs a session for user and sets it as a cookie on w.
func (m *SessionManager) Issue(w http.ResponseWriter, r *http.Request, user *domain.User) (*Identity, error) {
	displayName := user.DisplayName()
	if displayName == "" {
		displayName = user.Username
	}

	id := &Identity{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: displayName,
		IsAdmin:     user.IsAdmin(),
	}
	if err := m.write(w, r, id); err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("username", id.Username).
		Time("expires_at", id.ExpiresAt).
		Msg("session issued")

	return id, nil
}

// Invalidate expires the session cookie on the client.
// Copies of the token stay valid until they expire.
func (m *SessionManager) Invalidate(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// Introspect verifies the session cookie on r and returns its identity.
// It returns ErrNoSession when there is no cookie and ErrInvalidSession when
// the token fails verification.
func (m *SessionManager) Introspect(r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	claims := &sessionClaims{}
	_, err = m.parser.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrInvalidSession)
	}

	id := &Identity{
		UserID:      userID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		IsAdmin:     claims.Admin,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if id.DisplayName == "" {
		id.DisplayName = id.Username
	}
	return id, nil
}

// Refresh re-issues the session cookie once less than half of the TTL remains.
// It returns the identity that is current after the call.
func (m *SessionManager) Refresh(w http.ResponseWriter, r *http.Request, id *Identity) (*Identity, error) {
	if id.ExpiresAt.Sub(m.now()) >= m.ttl/2 {
		return id, nil
	}

	refreshed := *id
	if err := m.write(w, r, &refreshed); err != nil {
		return id, err
	}

	m.logger.Debug().
		Str("username", refreshed.Username).
		Time("expires_at", refreshed.ExpiresAt).
		Msg("session refreshed")

	return &refreshed, nil
}

// write signs id, stamps its timestamps and sets the cookie.
func (m *SessionManager) write(w http.ResponseWriter, r *http.Request, id *Identity) error {
	now := m.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Username:    id.Username,
		DisplayName: id.DisplayName,
		Admin:       id.IsAdmin,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	id.IssuedAt = claims.IssuedAt.Time
	id.ExpiresAt = claims.ExpiresAt.Time

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		Expires:  id.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

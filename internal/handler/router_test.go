package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hedgehog-panel/hedgehog/internal/auth"
	"github.com/hedgehog-panel/hedgehog/internal/ids"
	"github.com/hedgehog-panel/hedgehog/internal/metrics"
	"github.com/hedgehog-panel/hedgehog/internal/ratelimit"
	"github.com/hedgehog-panel/hedgehog/internal/repository/migrations"
	"github.com/hedgehog-panel/hedgehog/internal/repository/sqlite"
	"github.com/hedgehog-panel/hedgehog/internal/service"
)

const (
	adminPassword = "admin-pass"
	bobPassword   = "bob-pass"
)

type testEnv struct {
	server   *httptest.Server
	db       *sqlite.DB
	accounts *service.AccountService
}

func newTestEnv(t *testing.T, limiter ratelimit.Limiter, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(filepath.Join(t.TempDir(), "panel.db")), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.New(db.DB(), "sqlite", logger)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))

	userRepo := sqlite.NewUserRepository(db)
	serverRepo := sqlite.NewServerRepository(db)
	allocator := ids.New(logger)

	accounts := service.NewAccountService(userRepo, allocator, bcrypt.MinCost, logger)
	servers := service.NewServerService(serverRepo, userRepo, allocator, logger)

	sessions, err := auth.NewSessionManager(auth.SessionConfig{TTL: time.Hour, CookieName: "hedgehog_session"}, logger)
	require.NoError(t, err)

	if limiter == nil {
		limiter = ratelimit.NewNoOpLimiter()
	}

	config := RouterConfig{
		Accounts:    accounts,
		Servers:     servers,
		Sessions:    sessions,
		Limiter:     limiter,
		Health:      db,
		Metrics:     metrics.New(),
		MaxBodySize: 1 << 20,
		Logger:      logger,
	}
	for _, opt := range opts {
		opt(&config)
	}

	router, err := NewRouter(config)
	require.NoError(t, err)

	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)

	_, err = accounts.EnsureAdmin(ctx, "admin@example.com", adminPassword)
	require.NoError(t, err)
	_, err = accounts.Create(ctx, service.CreateUserInput{
		Username:  "bob",
		Email:     "bob@example.com",
		Password:  bobPassword,
		FirstName: "Bob",
	})
	require.NoError(t, err)

	return &testEnv{server: srv, db: db, accounts: accounts}
}

// client returns a cookie-keeping client that does not follow redirects.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	return e.doWithHeader(t, c, method, path, body, nil)
}

func (e *testEnv) doWithHeader(t *testing.T, c *http.Client, method, path string, body interface{}, header http.Header) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) login(t *testing.T, username, password string) *http.Client {
	t.Helper()
	c := e.client(t)
	resp, body := e.do(t, c, http.MethodPost, "/api/login", loginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	return c
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// =============================================================================
// Auth API
// =============================================================================

func TestLogin_AdminFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodPost, "/api/login", loginRequest{Username: " admin ", Password: adminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decode[successResponse](t, body).Success)

	resp, body = env.do(t, c, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[meResponse](t, body)
	require.Equal(t, "admin", me.Username)
	require.Equal(t, "admin", me.DisplayName)
	require.True(t, me.IsAdmin)

	resp, body = env.do(t, c, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[[]userResponse](t, body), 2)
	require.Equal(t, "2", resp.Header.Get("X-Total-Count"))

	resp, _ = env.do(t, c, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, c, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_NonAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.login(t, "BOB", bobPassword)

	resp, body := env.do(t, c, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[meResponse](t, body)
	require.Equal(t, "bob", me.Username)
	require.Equal(t, "Bob", me.DisplayName)
	require.False(t, me.IsAdmin)
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{name: "malformed json", body: "{", wantStatus: http.StatusBadRequest},
		{name: "missing username", body: loginRequest{Password: "x"}, wantStatus: http.StatusBadRequest, wantError: "Missing username or password."},
		{name: "blank password", body: loginRequest{Username: "bob", Password: "   "}, wantStatus: http.StatusBadRequest, wantError: "Missing username or password."},
		{name: "username too long", body: loginRequest{Username: strings.Repeat("a", 65), Password: "x"}, wantStatus: http.StatusBadRequest, wantError: "Invalid credentials."},
		{name: "password too long", body: loginRequest{Username: "bob", Password: strings.Repeat("p", 257)}, wantStatus: http.StatusBadRequest, wantError: "Invalid credentials."},
		{name: "sql injection", body: loginRequest{Username: "admin' OR '1'='1", Password: "x"}, wantStatus: http.StatusBadRequest, wantError: "Invalid username format."},
		{name: "drop table", body: loginRequest{Username: "x'; DROP TABLE users; --", Password: "x"}, wantStatus: http.StatusBadRequest, wantError: "Invalid username format."},
		{name: "wrong password", body: loginRequest{Username: "bob", Password: "nope"}, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", body: loginRequest{Username: "ghost", Password: "nope"}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := env.client(t)
			resp, body := env.do(t, c, http.MethodPost, "/api/login", tt.body)
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			if tt.wantError != "" {
				require.Equal(t, tt.wantError, decode[errorResponse](t, body).Error)
			}
			require.Empty(t, resp.Cookies())
		})
	}

	out, err := env.accounts.List(context.Background(), service.ListUsersInput{})
	require.NoError(t, err)
	require.EqualValues(t, 2, out.TotalCount)
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	t.Cleanup(func() { _ = limiter.Close() })
	env := newTestEnv(t, limiter)
	c := env.client(t)

	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, c, http.MethodPost, "/api/login", loginRequest{Username: "bob", Password: "wrong"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := env.do(t, c, http.MethodPost, "/api/login", loginRequest{Username: "bob", Password: bobPassword})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, decode[errorResponse](t, body).Error)
}

func TestLogin_ForwardedForDoesNotResetBudget(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	t.Cleanup(func() { _ = limiter.Close() })
	env := newTestEnv(t, limiter)
	c := env.client(t)

	var statuses []int
	for i := 0; i < 4; i++ {
		header := http.Header{}
		header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i+1))
		resp, _ := env.doWithHeader(t, c, http.MethodPost, "/api/login", loginRequest{Username: "bob", Password: "wrong"}, header)
		statuses = append(statuses, resp.StatusCode)
	}

	require.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, statuses)
}

func TestLogin_TrustedProxyHeaders(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(1, time.Minute)
	t.Cleanup(func() { _ = limiter.Close() })
	env := newTestEnv(t, limiter, func(c *RouterConfig) { c.TrustProxyHeaders = true })
	c := env.client(t)

	send := func(ip string) int {
		header := http.Header{}
		header.Set("X-Real-IP", ip)
		resp, _ := env.doWithHeader(t, c, http.MethodPost, "/api/login", loginRequest{Username: "bob", Password: "wrong"}, header)
		return resp.StatusCode
	}

	require.Equal(t, http.StatusUnauthorized, send("198.51.100.1"))
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.1"))
	require.Equal(t, http.StatusUnauthorized, send("198.51.100.2"))
}

func TestAdminUsers_LongPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.login(t, "admin", adminPassword)
	password := strings.Repeat("p", 100)

	resp, body := env.do(t, admin, http.MethodPost, "/api/admin/users", createUserRequest{
		Username: "gina",
		Email:    "gina@example.com",
		Password: password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	env.login(t, "gina", password)

	rotated := strings.Repeat("q", 256)
	resp, body = env.do(t, admin, http.MethodPut, "/api/admin/users/gina", updateUserRequest{Password: &rotated})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	env.login(t, "gina", rotated)
}

func TestLogin_SuccessResetsLimiter(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	t.Cleanup(func() { _ = limiter.Close() })
	env := newTestEnv(t, limiter)
	c := env.client(t)

	resp, _ := env.do(t, c, http.MethodPost, "/api/login", loginRequest{Username: "bob", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, c, http.MethodPost, "/api/login", loginRequest{Username: "bob", Password: bobPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, _ = env.do(t, c, http.MethodPost, "/api/login", loginRequest{Username: "bob", Password: "wrong"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

// =============================================================================
// Access Gate
// =============================================================================

func TestAdminAPI_Gate(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, env.client(t), http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, decode[errorResponse](t, body).Error)

	bob := env.login(t, "bob", bobPassword)
	for _, path := range []string{"/api/admin/users", "/api/admin/servers"} {
		resp, _ = env.do(t, bob, http.MethodGet, path, nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	resp, _ = env.do(t, bob, http.MethodDelete, "/api/admin/users/admin", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestViews(t *testing.T) {
	env := newTestEnv(t, nil)
	anon := env.client(t)
	bob := env.login(t, "bob", bobPassword)
	admin := env.login(t, "admin", adminPassword)

	tests := []struct {
		name         string
		client       *http.Client
		path         string
		wantStatus   int
		wantLocation string
	}{
		{name: "anonymous home", client: anon, path: "/", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "anonymous admin", client: anon, path: "/admin", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "anonymous login", client: anon, path: "/login", wantStatus: http.StatusOK},
		{name: "user login", client: bob, path: "/login", wantStatus: http.StatusFound, wantLocation: "/"},
		{name: "user home", client: bob, path: "/", wantStatus: http.StatusOK},
		{name: "user admin", client: bob, path: "/admin", wantStatus: http.StatusForbidden},
		{name: "admin admin", client: admin, path: "/admin", wantStatus: http.StatusOK},
		{name: "anonymous unknown page", client: anon, path: "/settings", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "anonymous unknown admin page", client: anon, path: "/admin/users", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "user unknown page", client: bob, path: "/settings", wantStatus: http.StatusNotFound},
		{name: "user unknown admin page", client: bob, path: "/admin/users", wantStatus: http.StatusForbidden},
		{name: "admin unknown admin page", client: admin, path: "/admin/users", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.client, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.wantStatus, resp.StatusCode)

			switch tt.wantStatus {
			case http.StatusFound:
				require.Equal(t, tt.wantLocation, resp.Header.Get("Location"))
			case http.StatusForbidden:
				require.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
				require.Equal(t, "Forbidden", string(body))
			case http.StatusOK:
				require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
				require.Contains(t, string(body), "Hedgehog Panel")
			}
		})
	}

	resp, body := env.do(t, anon, http.MethodGet, "/api/nowhere", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Not found.", decode[errorResponse](t, body).Error)
}

func TestStaticAssetsUngated(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, env.client(t), http.MethodGet, "/html/css/panel.css", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), ".topbar")

	resp, _ = env.do(t, env.client(t), http.MethodGet, "/html/js/panel.js", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// Admin API
// =============================================================================

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.login(t, "admin", adminPassword)

	resp, body := env.do(t, admin, http.MethodPost, "/api/admin/users", createUserRequest{
		Username:  "carol",
		Email:     "carol@example.com",
		Password:  "carol-pass",
		FirstName: "Carol",
		LastName:  "Danvers",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	created := decode[userResponse](t, body)
	require.Equal(t, "carol", created.Username)
	require.Equal(t, "Carol Danvers", created.Name)
	require.NotEqual(t, uuid.Nil, created.GUID)
	require.NotContains(t, string(body), "password")

	resp, body = env.do(t, admin, http.MethodPost, "/api/admin/users", createUserRequest{
		Username: "carol2",
		Email:    "carol@example.com",
		Password: "x",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "User with the same email already exists.", decode[errorResponse](t, body).Error)

	resp, _ = env.do(t, admin, http.MethodPost, "/api/admin/users", createUserRequest{Username: "dave"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, admin, http.MethodGet, "/api/admin/users/CAROL", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, created.GUID, decode[userResponse](t, body).GUID)

	email := "carol@new.example.com"
	resp, body = env.do(t, admin, http.MethodPut, "/api/admin/users/carol", updateUserRequest{Email: &email})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, email, decode[userResponse](t, body).Email)

	// The password was not part of the update and still works.
	env.login(t, "carol", "carol-pass")

	resp, body = env.do(t, admin, http.MethodDelete, "/api/admin/users/Admin", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Cannot delete built-in admin user.", decode[errorResponse](t, body).Error)

	resp, _ = env.do(t, admin, http.MethodDelete, "/api/admin/users/carol", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, admin, http.MethodDelete, "/api/admin/users/carol", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "User not found.", decode[errorResponse](t, body).Error)

	resp, _ = env.do(t, admin, http.MethodGet, "/api/admin/users/carol", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, admin, http.MethodGet, "/api/admin/users?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServers(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.login(t, "admin", adminPassword)
	bob := env.login(t, "bob", bobPassword)

	resp, body := env.do(t, admin, http.MethodPost, "/api/admin/servers", createServerRequest{
		Name:          "edge-1",
		OwnerUsername: "bob",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	created := decode[serverResponse](t, body)
	require.Equal(t, "edge-1", created.Name)
	require.NotNil(t, created.OwnerUsername)
	require.Equal(t, "bob", *created.OwnerUsername)

	resp, body = env.do(t, admin, http.MethodPost, "/api/admin/servers", createServerRequest{Name: "edge-2", OwnerUsername: "ghost"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Owner username not found.", decode[errorResponse](t, body).Error)

	resp, _ = env.do(t, admin, http.MethodPost, "/api/admin/servers", createServerRequest{Name: "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	badOwner := "not-a-uuid"
	resp, _ = env.do(t, admin, http.MethodPost, "/api/admin/servers", createServerRequest{Name: "edge-3", OwnerID: &badOwner})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, admin, http.MethodGet, "/api/admin/servers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decode[[]serverResponse](t, body)
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID)

	resp, body = env.do(t, bob, http.MethodGet, "/api/servers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decode[[]serverSummaryResponse](t, body)
	require.Equal(t, []serverSummaryResponse{{
		ID:     created.ID.String(),
		Name:   "edge-1",
		Owner:  "You",
		Role:   "Owner",
		Status: "Unknown",
	}}, mine)

	resp, body = env.do(t, admin, http.MethodGet, "/api/servers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, "[]", string(body))

	resp, body = env.do(t, env.client(t), http.MethodGet, "/api/servers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, "[]", string(body))

	resp, body = env.do(t, admin, http.MethodDelete, "/api/admin/servers/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid server id.", decode[errorResponse](t, body).Error)

	resp, _ = env.do(t, admin, http.MethodDelete, "/api/admin/servers/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, admin, http.MethodDelete, "/api/admin/servers/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, bob, http.MethodGet, "/api/servers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, "[]", string(body))
}

// =============================================================================
// Operational Endpoints
// =============================================================================

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)

	resp, body := env.do(t, c, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "healthy", decode[healthResponse](t, body).Status)

	env.do(t, c, http.MethodGet, "/api/admin/users", nil)

	resp, body = env.do(t, c, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `hedgehog_http_requests_total{method="GET",route="/health",status="200"} 1`)
	require.Contains(t, string(body), `hedgehog_auth_access_denied_total{reason="anonymous"} 1`)

	require.NoError(t, env.db.Close())
	resp, body = env.do(t, c, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "unhealthy", decode[healthResponse](t, body).Status)
}

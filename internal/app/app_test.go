package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog-panel/hedgehog/internal/config"
	"github.com/hedgehog-panel/hedgehog/internal/ratelimit"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: 5 * time.Second,
			MaxBodySize:     1 << 20,
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			Path:        filepath.Join(t.TempDir(), "data", "hedgehog.db"),
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			SessionTTL:             time.Hour,
			CookieName:             "hedgehog_session",
			BcryptCost:             4,
			BootstrapAdminEmail:    "admin@example.com",
			BootstrapAdminPassword: "bootstrap-pass",
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		RateLimit: config.RateLimitConfig{
			Enabled:       true,
			LoginAttempts: 5,
			LoginWindow:   time.Minute,
		},
	}
}

func TestNew_BootstrapsAdmin(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/login", "application/json",
		bytes.NewBufferString(`{"username":"admin","password":"bootstrap-pass"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, body.String(), "hedgehog_ids_issued 1")
}

func TestNew_ReopenKeepsAdmin(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	out, err := second.services.Accounts.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	require.True(t, out.IsAdmin())
}

func TestNew_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := New(context.Background(), cfg, zerolog.Nop())
	require.ErrorContains(t, err, "unsupported database driver")

	cfg = testConfig(t)
	cfg.Auth.SessionKey = "abcd"
	_, err = New(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	cfg := testConfig(t)
	a := &App{cfg: cfg, logger: zerolog.Nop()}
	t.Cleanup(func() { _ = a.Close() })

	limiter, err := a.newLimiter(context.Background())
	require.NoError(t, err)
	require.IsType(t, &ratelimit.MemoryLimiter{}, limiter)
	require.Len(t, a.closers, 1)

	cfg.RateLimit.Enabled = false
	limiter, err = a.newLimiter(context.Background())
	require.NoError(t, err)
	require.IsType(t, &ratelimit.NoOpLimiter{}, limiter)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

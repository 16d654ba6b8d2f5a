// Package handler provides the HTTP surface of Hedgehog: the JSON API, the
// HTML shell pages and the operational endpoints.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/auth"
	"github.com/hedgehog-panel/hedgehog/internal/metrics"
	"github.com/hedgehog-panel/hedgehog/internal/ratelimit"
	"github.com/hedgehog-panel/hedgehog/internal/service"
)

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Router wires handlers, middleware and the access gate together.
type Router struct {
	auth    *AuthHandler
	users   *UserHandler
	servers *ServerHandler
	views   *ViewHandler
	gate    *auth.Gate
	health  HealthChecker
	metrics *metrics.Metrics

	metricsPath       string
	maxBodySize       int64
	trustProxyHeaders bool
	logger            zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Accounts *service.AccountService
	Servers  *service.ServerService
	Sessions *auth.SessionManager
	Limiter  ratelimit.Limiter
	Health   HealthChecker

	// Metrics may be nil, in which case no metrics endpoint is mounted.
	Metrics     *metrics.Metrics
	MetricsPath string

	StaticDir   string
	MaxBodySize int64

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) (*Router, error) {
	views, err := NewViewHandler(config.StaticDir, config.Logger)
	if err != nil {
		return nil, err
	}

	var recorder auth.DenialRecorder
	if config.Metrics != nil {
		recorder = config.Metrics
	}

	return &Router{
		auth:        NewAuthHandler(config.Accounts, config.Sessions, config.Limiter, config.Metrics, config.Logger),
		users:       NewUserHandler(config.Accounts, config.Logger),
		servers:     NewServerHandler(config.Servers, config.Logger),
		views:       views,
		gate:        auth.NewGate(config.Sessions, recorder, config.Logger),
		health:      config.Health,
		metrics:     config.Metrics,
		metricsPath: config.MetricsPath,
		maxBodySize: config.MaxBodySize,

		trustProxyHeaders: config.TrustProxyHeaders,
		logger:      config.Logger.With().Str("component", "router").Logger(),
	}, nil
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if rt.trustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger(rt.logger, rt.metrics))
	r.Use(recoverer(rt.logger))

	// Never gated.
	r.Get("/health", rt.handleHealth)
	if rt.metrics != nil {
		path := rt.metricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, rt.metrics.Handler())
	}
	r.Handle("/html/*", rt.views.Assets())

	r.Group(func(r chi.Router) {
		r.Use(rt.gate.Resolve)

		r.Route("/api", func(r chi.Router) {
			r.Use(limitBody(rt.maxBodySize))

			r.Post("/login", rt.auth.Login)
			r.Post("/logout", rt.auth.Logout)
			r.Get("/me", rt.auth.Me)
			r.Get("/servers", rt.servers.ListMine)

			r.Route("/admin", func(r chi.Router) {
				r.Use(rt.gate.RequireAdmin)
				rt.users.RegisterRoutes(r)
				rt.servers.RegisterAdminRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.gate.Views)
			r.Get(auth.HomePath, rt.views.Home)
			r.Get(auth.LoginPath, rt.views.Login)
			r.Get(auth.AdminPath, rt.views.Admin)
		})
	})

	// Unknown pages pass through the view gate so anonymous callers are
	// still sent to the login page.
	unknownView := rt.gate.Resolve(rt.gate.Views(http.HandlerFunc(rt.views.NotFound)))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "Not found.")
			return
		}
		unknownView.ServeHTTP(w, r)
	})

	return r
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := rt.health.Ping(ctx); err != nil {
			rt.logger.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Error: "store unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

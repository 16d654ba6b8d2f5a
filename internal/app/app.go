package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/auth"
	"github.com/hedgehog-panel/hedgehog/internal/config"
	"github.com/hedgehog-panel/hedgehog/internal/handler"
	"github.com/hedgehog-panel/hedgehog/internal/ids"
	"github.com/hedgehog-panel/hedgehog/internal/metrics"
	"github.com/hedgehog-panel/hedgehog/internal/ratelimit"
	"github.com/hedgehog-panel/hedgehog/internal/repository"
	"github.com/hedgehog-panel/hedgehog/internal/service"
)

// Services bundles the business services built on a store.
type Services struct {
	IDs      *ids.Allocator
	Accounts *service.AccountService
	Servers  *service.ServerService
}

// NewServices builds the services that share one identifier allocator.
func NewServices(store *repository.Store, bcryptCost int, logger zerolog.Logger) *Services {
	allocator := ids.New(logger)
	return &Services{
		IDs:      allocator,
		Accounts: service.NewAccountService(store.Repos.User, allocator, bcryptCost, logger),
		Servers:  service.NewServerService(store.Repos.Server, store.Repos.User, allocator, logger),
	}
}

// App is a fully wired Hedgehog server.
type App struct {
	cfg      *config.Config
	store    *repository.Store
	services *Services
	server   *http.Server
	closers  []func() error
	logger   zerolog.Logger
}

// New connects to the store, prepares the schema and bootstrap account, and
// builds the HTTP server.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *App, err error) {
	a := &App{
		cfg:    cfg,
		logger: logger.With().Str("component", "app").Logger(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.store, err = OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.closers = append(a.closers, a.store.Database.Close)

	if cfg.Database.AutoMigrate {
		migrator, err := NewMigrator(a.store, logger)
		if err != nil {
			return nil, err
		}
		if err := migrator.Up(ctx); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	a.services = NewServices(a.store, cfg.Auth.BcryptCost, logger)

	if cfg.Auth.BootstrapAdminPassword != "" {
		created, err := a.services.Accounts.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
		}
		if created {
			a.logger.Info().Msg("created built-in admin account")
		}
	}

	sessionKey, err := cfg.Auth.GetSessionKey()
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionManager(auth.SessionConfig{
		Key:        sessionKey,
		TTL:        cfg.Auth.SessionTTL,
		CookieName: cfg.Auth.CookieName,
		Secure:     cfg.Auth.CookieSecure,
	}, logger)
	if err != nil {
		return nil, err
	}

	limiter, err := a.newLimiter(ctx)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		allocator := a.services.IDs
		if err := m.RegisterGaugeFunc("ids_issued", "Identifiers issued by this process.", func() float64 {
			return float64(allocator.Len())
		}); err != nil {
			return nil, err
		}
	}

	router, err := handler.NewRouter(handler.RouterConfig{
		Accounts:    a.services.Accounts,
		Servers:     a.services.Servers,
		Sessions:    sessions,
		Limiter:     limiter,
		Health:      a.store.Database,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		StaticDir:   cfg.Server.StaticDir,
		MaxBodySize: cfg.Server.MaxBodySize,

		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	a.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

// newLimiter picks the login limiter: Redis when configured, in-memory
// otherwise, and a no-op when throttling is disabled.
func (a *App) newLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	rl := a.cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NewNoOpLimiter(), nil
	}

	if a.cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:        a.cfg.Redis.Addr(),
			Password:    a.cfg.Redis.Password,
			DB:          a.cfg.Redis.DB,
			PoolSize:    a.cfg.Redis.PoolSize,
			DialTimeout: a.cfg.Redis.DialTimeout,
		})
		a.closers = append(a.closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.logger.Info().Str("addr", a.cfg.Redis.Addr()).Msg("using redis login limiter")
		return ratelimit.NewRedisLimiter(client, rl.LoginAttempts, rl.LoginWindow), nil
	}

	limiter := ratelimit.NewMemoryLimiter(rl.LoginAttempts, rl.LoginWindow)
	a.closers = append(a.closers, limiter.Close)
	return limiter, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return <-errCh
}

// Close releases the store, the limiter and any client connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

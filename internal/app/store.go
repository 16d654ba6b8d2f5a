// Package app assembles the Hedgehog components from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/config"
	"github.com/hedgehog-panel/hedgehog/internal/repository"
	"github.com/hedgehog-panel/hedgehog/internal/repository/migrations"
	"github.com/hedgehog-panel/hedgehog/internal/repository/postgres"
	"github.com/hedgehog-panel/hedgehog/internal/repository/sqlite"
)

// OpenStore connects to the configured database and builds its repositories.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &repository.Store{
			Repos: &repository.Repositories{
				User:   postgres.NewUserRepository(db),
				Server: postgres.NewServerRepository(db),
			},
			Database: db,
			Driver:   cfg.Driver,
			SQL:      db.SQLDB(),
		}, nil

	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqliteConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		return &repository.Store{
			Repos: &repository.Repositories{
				User:   sqlite.NewUserRepository(db),
				Server: sqlite.NewServerRepository(db),
			},
			Database: db,
			Driver:   cfg.Driver,
			SQL:      db.DB(),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

// NewMigrator returns a schema migrator for the store.
func NewMigrator(store *repository.Store, logger zerolog.Logger) (*migrations.Migrator, error) {
	return migrations.New(store.SQL, store.Driver, logger)
}

// sqliteConfig overlays the configured SQLite settings on the defaults.
func sqliteConfig(cfg config.DatabaseConfig) sqlite.Config {
	sc := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		sc.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		sc.BusyTimeout = cfg.BusyTimeout
	}
	if cfg.CacheSize != 0 {
		sc.CacheSize = cfg.CacheSize
	}
	if cfg.SynchronousMode != "" {
		sc.SynchronousMode = cfg.SynchronousMode
	}
	return sc
}

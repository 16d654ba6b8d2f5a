// Package migrations embeds the schema for each supported database driver
// and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// goose keeps its filesystem, dialect and logger in package state.
var mu sync.Mutex

// Migrator runs schema migrations for one driver.
type Migrator struct {
	db      *sql.DB
	driver  string
	dialect string
	logger  zerolog.Logger
}

// New creates a Migrator. driver is "postgres" or "sqlite".
func New(db *sql.DB, driver string, logger zerolog.Logger) (*Migrator, error) {
	var dialect string
	switch driver {
	case "postgres":
		dialect = "pgx"
	case "sqlite":
		dialect = "sqlite3"
	default:
		return nil, fmt.Errorf("unsupported migration driver %q", driver)
	}

	return &Migrator{
		db:      db,
		driver:  driver,
		dialect: dialect,
		logger:  logger.With().Str("component", "migrations").Str("driver", driver).Logger(),
	}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(func() error {
		return goose.UpContext(ctx, m.db, m.driver)
	})
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(func() error {
		return goose.DownContext(ctx, m.db, m.driver)
	})
}

// Status logs the state of every known migration.
func (m *Migrator) Status(ctx context.Context) error {
	return m.run(func() error {
		return goose.StatusContext(ctx, m.db, m.driver)
	})
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(func() error {
		var err error
		version, err = goose.GetDBVersionContext(ctx, m.db)
		return err
	})
	return version, err
}

func (m *Migrator) run(fn func() error) error {
	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(files)
	goose.SetLogger(gooseLogger{logger: m.logger})
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := fn(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

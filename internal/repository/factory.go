package repository

import (
	"context"
	"database/sql"
)

// Repositories holds all repository instances.
type Repositories struct {
	User   UserRepository
	Server ServerRepository
}

// DatabaseHealth is the connection behind a Store. Ping satisfies
// handler.HealthChecker for the health endpoint.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Close() error
}

// Store bundles the repositories with the connection that backs them.
type Store struct {
	Repos    *Repositories
	Database DatabaseHealth

	// Driver is "postgres" or "sqlite".
	Driver string

	// SQL exposes the connection as database/sql for schema migrations.
	SQL *sql.DB
}

// Package postgres implements the Hedgehog repositories on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/hedgehog-panel/hedgehog/internal/config"
)

const connectTimeout = 10 * time.Second

// DB is the shared connection pool behind the user and server repositories.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB opens a pool from cfg and verifies it with a ping.
// Statements are traced at debug level when the logger allows it.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	logger = logger.With().Str("component", "postgres").Logger()

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	if logger.GetLevel() <= zerolog.DebugLevel {
		poolConfig.ConnConfig.Tracer = statementTracer{logger: logger}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: logger}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.Pool.Close()
	db.logger.Info().Msg("connection pool closed")
	return nil
}

// Ping reports whether the server answers. It backs the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// SQLDB returns a database/sql handle on the same pool for goose.
// Closing it does not close the pool.
func (db *DB) SQLDB() *sql.DB {
	return stdlib.OpenDBFromPool(db.Pool)
}

// WithTx runs fn in a read-write transaction. It commits when fn returns nil
// and rolls back otherwise, including when fn panics.
func (db *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// statementTracer logs each statement with its duration.
type statementTracer struct {
	logger zerolog.Logger
}

type statementStartKey struct{}

func (t statementTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, statementStartKey{}, time.Now())
}

func (t statementTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	started, ok := ctx.Value(statementStartKey{}).(time.Time)
	if !ok {
		return
	}

	event := t.logger.Debug()
	if data.Err != nil {
		event = t.logger.Warn().Err(data.Err)
	}
	event.
		Dur("duration", time.Since(started)).
		Str("command_tag", data.CommandTag.String()).
		Msg("statement executed")
}

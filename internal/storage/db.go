// Package db provides read access to the hotel-chain relational store.
//
// This package contains:
//   - DB: backend-neutral handle with per-request connection acquisition
//   - PostgreSQL backend over a pgx connection pool
//   - SQLite backend over database/sql (modernc.org/sqlite)
//   - Dialect: placeholder, date formatting and text matching differences
//   - Table: named-column result sets with normalized values
//   - Optional bootstrap migration of the schema via goose
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownDriver is returned by Open for unsupported driver names.
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrNotConfigured is returned when a nil or closed store is used.
	ErrNotConfigured = errors.New("storage is not configured")
)

// backend is implemented by each supported engine.
type backend interface {
	acquire(ctx context.Context) (session, error)
	ping(ctx context.Context) error
	migrate(ctx context.Context, logger *zerolog.Logger) error
	close()
}

// session is a single dedicated connection.
type session interface {
	query(ctx context.Context, query string, args []any) (*Table, error)
	release()
}

// DB wraps a storage backend and hands out one connection per request.
type DB struct {
	backend backend
	dialect Dialect
	Logger  *zerolog.Logger
}

// Open connects to the store selected by driver ("postgres" or "sqlite").
func Open(ctx context.Context, driver, dsn string, opts PoolOptions, logger *zerolog.Logger) (*DB, error) {
	switch strings.ToLower(driver) {
	case Postgres.Name:
		return NewWithOptions(ctx, dsn, opts, logger)
	case SQLite.Name:
		return OpenSQLite(ctx, dsn, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Dialect returns the SQL dialect of the underlying engine.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Acquire checks out a dedicated connection. Callers must Release it.
func (db *DB) Acquire(ctx context.Context) (*Conn, error) {
	if db == nil || db.backend == nil {
		return nil, ErrNotConfigured
	}

	s, err := db.backend.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	return &Conn{session: s, dialect: db.dialect}, nil
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.backend == nil {
		return ErrNotConfigured
	}

	if err := db.backend.ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", db.dialect.Name, err)
	}

	return nil
}

// Migrate applies the bootstrap schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	if db == nil || db.backend == nil {
		return ErrNotConfigured
	}

	return db.backend.migrate(ctx, db.Logger)
}

// Close releases every resource held by the store.
func (db *DB) Close() {
	if db == nil || db.backend == nil {
		return
	}

	db.backend.close()
}

// Conn is a connection checked out for the duration of one request.
type Conn struct {
	session  session
	dialect  Dialect
	released bool
}

// Query runs a read query written with '?' placeholders and returns all rows.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*Table, error) {
	if c.released {
		return nil, ErrNotConfigured
	}

	return c.session.query(ctx, c.dialect.Rebind(query), args)
}

// Release returns the connection. It is safe to call more than once.
func (c *Conn) Release() {
	if c.released {
		return
	}

	c.released = true
	c.session.release()
}

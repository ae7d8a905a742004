package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/hotel-dashboard/migrations"
)

// PoolOptions configures the database connection pool.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// DefaultPoolOptions returns sensible default pool configuration.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:          defaultMaxConns,
		MinConns:          defaultMinConns,
		MaxConnIdleTime:   defaultMaxConnIdleTime,
		MaxConnLifetime:   defaultMaxConnLifetime,
		HealthCheckPeriod: defaultHealthCheckPeriod,
	}
}

// NewWithOptions creates a new PostgreSQL store with custom pool options.
func NewWithOptions(ctx context.Context, dsn string, opts PoolOptions, logger *zerolog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	applyPoolOptions(config, opts)

	pool, err := connectWithRetries(ctx, config)
	if err != nil {
		return nil, err
	}

	return &DB{backend: &pgBackend{pool: pool}, dialect: Postgres, Logger: logger}, nil
}

// withDefaults fills unset fields from DefaultPoolOptions.
func (o PoolOptions) withDefaults() PoolOptions {
	defaults := DefaultPoolOptions()

	if o.MaxConns <= 0 {
		o.MaxConns = defaults.MaxConns
	}

	if o.MaxConnIdleTime <= 0 {
		o.MaxConnIdleTime = defaults.MaxConnIdleTime
	}

	if o.MaxConnLifetime <= 0 {
		o.MaxConnLifetime = defaults.MaxConnLifetime
	}

	if o.HealthCheckPeriod <= 0 {
		o.HealthCheckPeriod = defaults.HealthCheckPeriod
	}

	return o
}

// applyPoolOptions applies pool options to the config, unset fields taking
// their defaults.
func applyPoolOptions(config *pgxpool.Config, opts PoolOptions) {
	opts = opts.withDefaults()

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}

	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}

	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}

	if opts.HealthCheckPeriod > 0 {
		config.HealthCheckPeriod = opts.HealthCheckPeriod
	}
}

// connectWithRetries attempts to reach the database while the process starts.
// Request-time failures are never retried.
func connectWithRetries(ctx context.Context, config *pgxpool.Config) (*pgxpool.Pool, error) {
	var (
		pool *pgxpool.Pool
		err  error
	)

	for i := 0; i < maxConnectionRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
		}

		if pool != nil {
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to database: %w", ctx.Err())
		case <-time.After(ConnectionRetrySleep):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
}

type pgBackend struct {
	pool *pgxpool.Pool
}

func (b *pgBackend) acquire(ctx context.Context) (session, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by DB.Acquire
	}

	return &pgSession{conn: conn}, nil
}

func (b *pgBackend) ping(ctx context.Context) error {
	return b.pool.Ping(ctx) //nolint:wrapcheck // wrapped by DB.Ping
}

func (b *pgBackend) close() {
	b.pool.Close()
}

const migrationLockID = 1000

// gooseMu serializes use of goose's package-level dialect and filesystem.
var gooseMu sync.Mutex

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

func newGooseLogger(logger *zerolog.Logger) goose.Logger {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &gooseLogger{logger: logger}
}

// migrate runs the bootstrap migrations. It acquires an advisory lock so only
// one instance migrates at a time.
func (b *pgBackend) migrate(ctx context.Context, logger *zerolog.Logger) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	defer func() {
		//nolint:errcheck // advisory unlock in defer is best-effort, lock released on connection close anyway
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	dbSQL := stdlib.OpenDB(*b.pool.Config().ConnConfig)

	defer func() {
		_ = dbSQL.Close()
	}()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(newGooseLogger(logger))

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, dbSQL, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

type pgSession struct {
	conn *pgxpool.Conn
}

func (s *pgSession) query(ctx context.Context, query string, args []any) (*Table, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	table := &Table{Columns: make([]string, len(fields)), Rows: [][]any{}}

	for i, f := range fields {
		table.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		for i := range values {
			values[i] = normalizeValue(values[i])
		}

		table.Rows = append(table.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return table, nil
}

func (s *pgSession) release() {
	s.conn.Release()
}

package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"modernc.org/sqlite"

	"github.com/lueurxax/hotel-dashboard/migrations"
)

const (
	sqliteDriverName = "sqlite"
	foldCaseFunc     = "fold_case"
)

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldCaseFunc, 1, foldCase)
}

// foldCase applies Unicode case folding to text arguments, matching what
// ILIKE does on PostgreSQL. Other values pass through.
func foldCase(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return cases.Fold().String(v), nil
	case []byte:
		return cases.Fold().String(string(v)), nil
	default:
		return v, nil
	}
}

// OpenSQLite opens the SQLite file at path.
func OpenSQLite(ctx context.Context, path string, logger *zerolog.Logger) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrNotConfigured)
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	sqlDB, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	return NewFromSQL(sqlDB, SQLite, logger), nil
}

// NewFromSQL wraps an already opened database/sql handle. The dialect tells
// the store how to write queries for the engine behind it.
func NewFromSQL(sqlDB *sql.DB, dialect Dialect, logger *zerolog.Logger) *DB {
	return &DB{backend: &sqlBackend{db: sqlDB, dialect: dialect}, dialect: dialect, Logger: logger}
}

type sqlBackend struct {
	db      *sql.DB
	dialect Dialect
}

func (b *sqlBackend) acquire(ctx context.Context) (session, error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by DB.Acquire
	}

	return &sqlSession{conn: conn}, nil
}

func (b *sqlBackend) ping(ctx context.Context) error {
	return b.db.PingContext(ctx) //nolint:wrapcheck // wrapped by DB.Ping
}

func (b *sqlBackend) close() {
	_ = b.db.Close()
}

func (b *sqlBackend) migrate(ctx context.Context, logger *zerolog.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(newGooseLogger(logger))

	dialect := b.dialect.Name
	if dialect == SQLite.Name {
		dialect = "sqlite3"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, b.db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

type sqlSession struct {
	conn *sql.Conn
}

func (s *sqlSession) query(ctx context.Context, query string, args []any) (*Table, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	table := &Table{Columns: columns, Rows: [][]any{}}

	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))

		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
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

func (s *sqlSession) release() {
	_ = s.conn.Close()
}

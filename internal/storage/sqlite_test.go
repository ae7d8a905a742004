package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	db "github.com/lueurxax/hotel-dashboard/internal/storage"
	"github.com/lueurxax/hotel-dashboard/internal/storage/dbtest"
)

func TestOpen_UnknownDriver(t *testing.T) {
	logger := zerolog.Nop()

	_, err := db.Open(context.Background(), "oracle", "x", db.DefaultPoolOptions(), &logger)
	assert.ErrorIs(t, err, db.ErrUnknownDriver)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	logger := zerolog.Nop()

	_, err := db.OpenSQLite(context.Background(), "  ", &logger)
	assert.ErrorIs(t, err, db.ErrNotConfigured)
}

func TestSQLite_AcquireQueryRelease(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewSQLite(t, dbtest.Fixture())

	require.NoError(t, store.Ping(ctx))
	assert.Equal(t, db.SQLite, store.Dialect())

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)

	table, err := conn.Query(ctx, `SELECT hotelId AS hotel_id, name FROM hotel WHERE hotelId = ? ORDER BY hotelId`, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"hotel_id", "name"}, table.Columns)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, int64(1), table.Value(0, "hotel_id"))
	assert.Equal(t, "Grand Plaza", table.Value(0, "name"))

	conn.Release()
	conn.Release()

	_, err = conn.Query(ctx, `SELECT 1`)
	assert.ErrorIs(t, err, db.ErrNotConfigured)
}

func TestSQLite_EmptyResultHasColumns(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewSQLite(t, dbtest.Dataset{})

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	table, err := conn.Query(ctx, `SELECT hotelId AS hotel_id, name FROM hotel`)
	require.NoError(t, err)

	assert.Equal(t, []string{"hotel_id", "name"}, table.Columns)
	assert.True(t, table.Empty())
	assert.NotNil(t, table.Rows)
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	store := dbtest.NewSQLite(t, dbtest.Fixture())

	require.NoError(t, store.Migrate(context.Background()))
}

func TestNewFromSQL_QueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zerolog.Nop()
	store := db.NewFromSQL(sqlDB, db.Postgres, &logger)
	defer store.Close()

	mock.ExpectQuery(`SELECT name FROM hotel WHERE name ILIKE \$1`).
		WithArgs("%Grand%").
		WillReturnError(errors.New("connection reset"))

	conn, err := store.Acquire(context.Background())
	require.NoError(t, err)
	defer conn.Release()

	_, err = conn.Query(context.Background(), `SELECT name FROM hotel WHERE name ILIKE ?`, "%Grand%")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewFromSQL_NormalizesRows(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zerolog.Nop()
	store := db.NewFromSQL(sqlDB, db.SQLite, &logger)
	defer store.Close()

	rows := sqlmock.NewRows([]string{"hotel_name", "total_revenue"}).
		AddRow([]byte("Grand Plaza"), 440.0).
		AddRow("Seaside Inn", nil)

	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	conn, err := store.Acquire(context.Background())
	require.NoError(t, err)
	defer conn.Release()

	table, err := conn.Query(context.Background(), `SELECT hotel_name, total_revenue FROM x`)
	require.NoError(t, err)

	assert.Equal(t, "Grand Plaza", table.Value(0, "hotel_name"))
	assert.Equal(t, 440.0, table.Value(0, "total_revenue"))
	assert.Nil(t, table.Value(1, "total_revenue"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilStore(t *testing.T) {
	var store *db.DB

	_, err := store.Acquire(context.Background())
	assert.ErrorIs(t, err, db.ErrNotConfigured)
	assert.ErrorIs(t, store.Ping(context.Background()), db.ErrNotConfigured)
	store.Close()
}

func TestSQLite_ContainsFoldsUnicodeCase(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewSQLite(t, dbtest.Dataset{
		Hotels: []dbtest.Hotel{{ID: 1, Name: "Hôtel Ålesund"}, {ID: 2, Name: "Grand Plaza"}},
	})

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	for _, term := range []string{"ÅLESUND", "hôtel", "HÔTEL ålesund"} {
		table, err := conn.Query(ctx, `SELECT name FROM hotel WHERE `+db.SQLite.Contains("name"), db.ContainsPattern(term))
		require.NoError(t, err, term)

		require.Equal(t, 1, table.Len(), term)
		assert.Equal(t, "Hôtel Ålesund", table.Value(0, "name"), term)
	}
}

func TestSQLite_TimestampNormalizesDateOnly(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewSQLite(t, dbtest.Dataset{})

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	day := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	table, err := conn.Query(ctx,
		`SELECT `+db.SQLite.Timestamp("?")+` >= `+db.SQLite.Timestamp("?")+` AS in_window`,
		"2025-04-01", db.SQLite.TimeArg(day))
	require.NoError(t, err)

	assert.Equal(t, int64(1), table.Value(0, "in_window"))
}

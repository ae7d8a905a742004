package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/hotel-dashboard/internal/platform/config"
	"github.com/lueurxax/hotel-dashboard/internal/storage/dbtest"
)

func testConfig() *config.Config {
	return &config.Config{
		DBDriver:              config.DriverSQLite,
		SQLitePath:            "unused.db",
		OccupancyFrom:         "2025-01-01",
		OccupancyTo:           "2025-04-01",
		TopCustomersLimit:     5,
		RoomNightChargeTypeID: 1,
		SlowQueryThreshold:    time.Second,
	}
}

func TestReportOptions(t *testing.T) {
	opts, err := ReportOptions(testConfig())
	require.NoError(t, err)

	assert.Equal(t, 5, opts.TopCustomersLimit)
	assert.Equal(t, int64(1), opts.RoomNightChargeTypeID)
	assert.True(t, opts.OccupancyFrom.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, opts.OccupancyTo.Equal(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Second, opts.SlowQueryThreshold)
}

func TestReportOptions_InvalidWindow(t *testing.T) {
	cfg := testConfig()
	cfg.OccupancyFrom = "2025-05-01"

	_, err := ReportOptions(cfg)
	assert.Error(t, err)
}

func TestApp_NewHandlerServesDashboard(t *testing.T) {
	logger := zerolog.Nop()
	application := New(testConfig(), dbtest.NewSQLite(t, dbtest.Fixture()), &logger)

	handler, err := application.NewHandler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?format=json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "top_customers")
}

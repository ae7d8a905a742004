// Package app wires configuration, storage, the report service and the HTTP
// layer into a running dashboard process.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/hotel-dashboard/internal/platform/config"
	"github.com/lueurxax/hotel-dashboard/internal/platform/observability"
	"github.com/lueurxax/hotel-dashboard/internal/report"
	db "github.com/lueurxax/hotel-dashboard/internal/storage"
	"github.com/lueurxax/hotel-dashboard/internal/web"
)

// App holds the application dependencies.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// ReportOptions maps configuration onto report query parameters.
func ReportOptions(cfg *config.Config) (report.Options, error) {
	from, to, err := cfg.OccupancyWindow()
	if err != nil {
		return report.Options{}, err
	}

	return report.Options{
		TopCustomersLimit:     cfg.TopCustomersLimit,
		RoomNightChargeTypeID: cfg.RoomNightChargeTypeID,
		OccupancyFrom:         from,
		OccupancyTo:           to,
		SlowQueryThreshold:    cfg.SlowQueryThreshold,
	}, nil
}

// NewHandler builds the dashboard HTTP handler backed by the app's store.
func (a *App) NewHandler() (*web.Handler, error) {
	opts, err := ReportOptions(a.cfg)
	if err != nil {
		return nil, err
	}

	reports := report.NewService(a.database, opts, a.logger)

	handler, err := web.NewHandler(reports, web.Options{
		RateLimitRPS:      a.cfg.RateLimitRPS,
		RateLimitBurst:    a.cfg.RateLimitBurst,
		LimiterIdleTTL:    a.cfg.RateLimitIdleTTL,
		TrustProxyHeaders: a.cfg.TrustProxyHeaders,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("web handler init: %w", err)
	}

	return handler, nil
}

// RunHTTP serves the dashboard, health checks and metrics until ctx is done.
func (a *App) RunHTTP(ctx context.Context) error {
	handler, err := a.NewHandler()
	if err != nil {
		return err
	}

	observability.BuildInfo.WithLabelValues(a.database.Dialect().Name).Set(1)

	a.logger.Info().
		Str("driver", a.database.Dialect().Name).
		Int("top_customers_limit", a.cfg.TopCustomersLimit).
		Str("occupancy_from", a.cfg.OccupancyFrom).
		Str("occupancy_to", a.cfg.OccupancyTo).
		Msg("Starting dashboard")

	srv := observability.NewServer(a.database, a.cfg.HTTPPort, handler, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}

	return nil
}

// Package report runs the fixed aggregate queries behind the hotel dashboard
// and the faceted search page.
//
// Every call acquires one dedicated connection from the store, runs its
// queries sequentially and releases the connection before returning, so the
// caller renders only after storage work is finished. A storage failure aborts
// the whole call; nothing is retried and no partial result is returned.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	db "github.com/lueurxax/hotel-dashboard/internal/storage"
)

// Default query parameters.
const (
	DefaultTopCustomersLimit           = 10
	DefaultRoomNightChargeTypeID int64 = 1
	defaultSlowQueryThreshold          = 2 * time.Second
)

// Log field names.
const (
	logFieldQuery = "query"
	logFieldKind  = "kind"
)

// Store hands out per-request connections.
type Store interface {
	Acquire(ctx context.Context) (*db.Conn, error)
	Dialect() db.Dialect
}

// Options parameterizes the dashboard queries.
type Options struct {
	TopCustomersLimit     int
	RoomNightChargeTypeID int64
	OccupancyFrom         time.Time
	OccupancyTo           time.Time
	SlowQueryThreshold    time.Duration
}

// DefaultOptions returns the first-quarter 2025 report parameters.
func DefaultOptions() Options {
	return Options{
		TopCustomersLimit:     DefaultTopCustomersLimit,
		RoomNightChargeTypeID: DefaultRoomNightChargeTypeID,
		OccupancyFrom:         time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		OccupancyTo:           time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		SlowQueryThreshold:    defaultSlowQueryThreshold,
	}
}

// Service executes report queries against a Store.
type Service struct {
	store  Store
	opts   Options
	logger *zerolog.Logger
}

// NewService creates a report service. Zero-valued options fall back to defaults.
func NewService(store Store, opts Options, logger *zerolog.Logger) *Service {
	defaults := DefaultOptions()

	if opts.TopCustomersLimit <= 0 {
		opts.TopCustomersLimit = defaults.TopCustomersLimit
	}

	if opts.RoomNightChargeTypeID == 0 {
		opts.RoomNightChargeTypeID = defaults.RoomNightChargeTypeID
	}

	if opts.OccupancyFrom.IsZero() || opts.OccupancyTo.IsZero() {
		opts.OccupancyFrom, opts.OccupancyTo = defaults.OccupancyFrom, defaults.OccupancyTo
	}

	if opts.SlowQueryThreshold <= 0 {
		opts.SlowQueryThreshold = defaults.SlowQueryThreshold
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Service{store: store, opts: opts, logger: logger}
}

// Panel is one named row set of the dashboard.
type Panel struct {
	Name  string    `json:"name"`
	Title string    `json:"title"`
	Table *db.Table `json:"table"`
}

// Dashboard holds the eight dashboard panels in display order.
type Dashboard struct {
	Panels []Panel `json:"panels"`
}

// Panel returns the panel with the given name or nil.
func (d *Dashboard) Panel(name string) *Panel {
	if d == nil {
		return nil
	}

	for i := range d.Panels {
		if d.Panels[i].Name == name {
			return &d.Panels[i]
		}
	}

	return nil
}

// Dashboard runs every dashboard query on a single connection.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	defer conn.Release()

	dialect := s.store.Dialect()
	dash := &Dashboard{Panels: make([]Panel, 0, len(dashboardPanels))}

	for _, p := range dashboardPanels {
		query, args := p.build(dialect, s.opts)

		table, err := s.run(ctx, conn, p.name, query, args)
		if err != nil {
			return nil, fmt.Errorf("dashboard panel %s: %w", p.name, err)
		}

		dash.Panels = append(dash.Panels, Panel{Name: p.name, Title: p.title, Table: table})
	}

	return dash, nil
}

func (s *Service) run(ctx context.Context, conn *db.Conn, name, query string, args []any) (*db.Table, error) {
	start := time.Now()

	table, err := conn.Query(ctx, query, args...)

	elapsed := time.Since(start)
	queryDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		return nil, err
	}

	if elapsed >= s.opts.SlowQueryThreshold {
		s.logger.Warn().
			Str(logFieldQuery, name).
			Dur("duration", elapsed).
			Int("rows", table.Len()).
			Msg("report query slow")
	}

	return table, nil
}

// parseTimestamp turns text timestamps (SQLite aggregates) into time.Time so
// both backends hand out the same value types. Unparseable text is kept.
func parseTimestamp(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return v
	}

	return t
}

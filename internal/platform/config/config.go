package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	errUnknownDriver     = errors.New("unknown DB_DRIVER")
	errMissingDSN        = errors.New("POSTGRES_DSN is required for the postgres driver")
	errMissingSQLitePath = errors.New("SQLITE_PATH is required for the sqlite driver")
	errInvalidWindow     = errors.New("occupancy window start must be before its end")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`

	// Storage
	DBDriver            string        `env:"DB_DRIVER" envDefault:"sqlite"`
	PostgresDSN         string        `env:"POSTGRES_DSN"`
	SQLitePath          string        `env:"SQLITE_PATH" envDefault:"last_resort.db"`
	DBMigrate           bool          `env:"DB_MIGRATE" envDefault:"false"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"0"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Reports
	OccupancyFrom         string        `env:"OCCUPANCY_FROM" envDefault:"2025-01-01"`
	OccupancyTo           string        `env:"OCCUPANCY_TO" envDefault:"2025-04-01"`
	TopCustomersLimit     int           `env:"TOP_CUSTOMERS_LIMIT" envDefault:"10"`
	RoomNightChargeTypeID int64         `env:"ROOM_NIGHT_CHARGE_TYPE_ID" envDefault:"1"`
	SlowQueryThreshold    time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"2s"`

	// HTTP
	RateLimitRPS      float64       `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	RateLimitIdleTTL  time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"10m"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errMissingDSN
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errMissingSQLitePath
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, c.DBDriver)
	}

	if _, _, err := c.OccupancyWindow(); err != nil {
		return err
	}

	return nil
}

// OccupancyWindow returns the half-open [from, to) check-in window used by the
// occupancy panel. Both bounds are interpreted in UTC.
func (c *Config) OccupancyWindow() (time.Time, time.Time, error) {
	from, err := dateparse.ParseIn(strings.TrimSpace(c.OccupancyFrom), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse OCCUPANCY_FROM: %w", err)
	}

	to, err := dateparse.ParseIn(strings.TrimSpace(c.OccupancyTo), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse OCCUPANCY_TO: %w", err)
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, errInvalidWindow
	}

	return from, to, nil
}

// IsLocal reports whether the process runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}

// DataSource returns the driver-specific connection string.
func (c *Config) DataSource() string {
	if c.DBDriver == DriverPostgres {
		return c.PostgresDSN
	}

	return c.SQLitePath
}

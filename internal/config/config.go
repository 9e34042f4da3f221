// Package config provides configuration management for the report engine.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Ledger  LedgerConfig  `mapstructure:"ledger" validate:"required"`
	Runs    RunsConfig    `mapstructure:"runs"`
	Reports ReportsConfig `mapstructure:"reports"`
	Logging LoggingConfig `mapstructure:"logging"`
	HTTP    HTTPConfig    `mapstructure:"http"`
}

// ServerConfig contains the HTTP API listener settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Ledger drivers.
const (
	LedgerDriverSQLite    = "sqlite"
	LedgerDriverPostgREST = "postgrest"
	LedgerDriverFixtures  = "fixtures"
)

// LedgerConfig selects and configures the ledger store the reports read from.
type LedgerConfig struct {
	Driver    string          `mapstructure:"driver" validate:"oneof=sqlite postgrest fixtures"`
	PageSize  int             `mapstructure:"page_size" validate:"gte=1,lte=10000"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	PostgREST PostgRESTConfig `mapstructure:"postgrest"`
	Fixtures  FixturesConfig  `mapstructure:"fixtures"`
}

// SQLiteConfig points at a SQLite database file. Empty means in-memory.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgRESTConfig contains configuration for a PostgREST-compatible ledger API.
type PostgRESTConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"omitempty,url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FixturesConfig points at a YAML fixtures file.
type FixturesConfig struct {
	Path string `mapstructure:"path"`
}

// Run store drivers.
const (
	RunsDriverSQLite = "sqlite"
	RunsDriverMemory = "memory"
)

// RunsConfig configures where report runs are persisted.
type RunsConfig struct {
	Driver string       `mapstructure:"driver" validate:"oneof=sqlite memory"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	// StaleAfter is the lease after which a still-running run is marked failed.
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// ReportsConfig contains row ceilings and presentation settings.
type ReportsConfig struct {
	RunLimit         int      `mapstructure:"run_limit" validate:"gte=1"`
	SpreadsheetLimit int      `mapstructure:"spreadsheet_limit" validate:"gte=1"`
	PrintLimit       int      `mapstructure:"print_limit" validate:"gte=1"`
	PreviewSize      int      `mapstructure:"preview_size" validate:"gte=1,lte=1000"`
	Timezone         string   `mapstructure:"timezone" validate:"timezone"`
	CurrencySymbol   string   `mapstructure:"currency_symbol"`
	OutputDir        string   `mapstructure:"output_dir"`
	Formats          []string `mapstructure:"formats" validate:"dive,oneof=excel html"`
	PrintTemplate    string   `mapstructure:"print_template"` // optional override of the embedded print template
}

// LoggingConfig contains configurations for logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// HTTPConfig contains HTTP client configurations including retry settings.
type HTTPConfig struct {
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig defines retry behavior for outbound HTTP requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

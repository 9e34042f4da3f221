// Package config provides configuration management for the report engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified YAML file and environment variables.
// Environment variables take precedence over file values.
// Environment variable format: RESELL_<SECTION>_<KEY> (e.g., RESELL_LEDGER_POSTGREST_API_KEY)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RESELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration populated only with defaults. It is used
// by commands that can run without a config file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Ledger defaults
	v.SetDefault("ledger.driver", LedgerDriverSQLite)
	v.SetDefault("ledger.page_size", 1000)
	v.SetDefault("ledger.sqlite.path", "./data/ledger.db")
	v.SetDefault("ledger.postgrest.timeout", 30*time.Second)

	// Run store defaults
	v.SetDefault("runs.driver", RunsDriverSQLite)
	v.SetDefault("runs.sqlite.path", "./data/runs.db")
	v.SetDefault("runs.stale_after", 15*time.Minute)

	// Report defaults
	v.SetDefault("reports.run_limit", 10000)
	v.SetDefault("reports.spreadsheet_limit", 50000)
	v.SetDefault("reports.print_limit", 500)
	v.SetDefault("reports.preview_size", 50)
	v.SetDefault("reports.timezone", "Europe/London")
	v.SetDefault("reports.currency_symbol", "£")
	v.SetDefault("reports.output_dir", "./reports")
	v.SetDefault("reports.formats", []string{"excel", "html"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// The engine itself never retries; transport retries are opt-in.
	v.SetDefault("http.retry.max_retries", 0)
	v.SetDefault("http.retry.base_delay", 1*time.Second)
}

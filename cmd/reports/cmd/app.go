package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"resell-reports/internal/config"
	"resell-reports/internal/definition"
	"resell-reports/internal/ledger"
	"resell-reports/internal/ledger/postgrest"
	"resell-reports/internal/report"
	"resell-reports/internal/runstore"
	"resell-reports/internal/service"
	"resell-reports/internal/store/sqlite"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	timezone *time.Location
	source   ledger.Source
	runs     runstore.Store
	runner   *service.Runner

	// sqlite stores opened by path, shared between ledger and run store
	stores map[string]*sqlite.Store
}

// loadConfig loads the configuration and builds the logger. The --log-level
// flag overrides the config file when set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger) {
	configPath := GetConfigFile()
	cfg, err := config.Load(configPath)
	if err != nil {
		// Use temporary console logger for config loading errors
		tmpLogger := setupLogger("error", "console", time.UTC)
		tmpLogger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		fmt.Fprintf(os.Stderr, "❌ failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}

	// Validate has already checked the timezone loads
	tz, _ := time.LoadLocation(cfg.Reports.Timezone)
	logger := setupLogger(level, cfg.Logging.Format, tz)
	logger.Debug().
		Str("config_path", configPath).
		Str("log_level", level).
		Str("log_format", cfg.Logging.Format).
		Msg("configuration loaded successfully")

	return cfg, logger
}

// newApp wires the ledger, run store, definitions, writers and runner.
func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	tz, err := time.LoadLocation(cfg.Reports.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Reports.Timezone, err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		timezone: tz,
		stores:   make(map[string]*sqlite.Store),
	}

	if a.source, err = a.openLedger(); err != nil {
		a.Close()
		return nil, err
	}
	if a.runs, err = a.openRuns(); err != nil {
		a.Close()
		return nil, err
	}

	definitions := definition.NewRegistry(
		definition.WithLocation(tz),
		definition.WithPageSize(cfg.Ledger.PageSize),
		definition.WithAggregateLimit(cfg.Reports.SpreadsheetLimit),
	)
	writers := report.NewRegistry(report.Options{
		Timezone:       tz,
		CurrencySymbol: cfg.Reports.CurrencySymbol,
		PrintTemplate:  cfg.Reports.PrintTemplate,
		PrintMaxRows:   cfg.Reports.PrintLimit,
	})

	a.runner = service.NewRunner(definitions, a.source, a.runs, writers, logger,
		service.WithTimezone(tz),
		service.WithLimits(service.Limits{
			Run:         cfg.Reports.RunLimit,
			Spreadsheet: cfg.Reports.SpreadsheetLimit,
			Print:       cfg.Reports.PrintLimit,
			Preview:     cfg.Reports.PreviewSize,
		}),
	)

	return a, nil
}

func (a *app) openLedger() (ledger.Source, error) {
	cfg := a.cfg.Ledger
	switch cfg.Driver {
	case config.LedgerDriverPostgREST:
		a.logger.Info().Str("endpoint", cfg.PostgREST.Endpoint).Msg("using PostgREST ledger")
		return postgrest.NewClient(&cfg.PostgREST, &a.cfg.HTTP.Retry, a.logger), nil
	case config.LedgerDriverFixtures:
		fixtures, err := ledger.LoadFixtures(cfg.Fixtures.Path)
		if err != nil {
			return nil, err
		}
		a.logger.Info().
			Str("path", cfg.Fixtures.Path).
			Int("sales", len(fixtures.Sales)).
			Int("inventory_items", len(fixtures.Inventory)).
			Msg("using fixture ledger")
		return ledger.NewMemorySource(fixtures.Tables()), nil
	default:
		a.logger.Info().Str("path", cfg.SQLite.Path).Msg("using sqlite ledger")
		return a.sqliteStore(cfg.SQLite.Path)
	}
}

func (a *app) openRuns() (runstore.Store, error) {
	cfg := a.cfg.Runs
	if cfg.Driver == config.RunsDriverMemory {
		a.logger.Warn().Msg("runs are kept in memory and lost on exit")
		return runstore.NewMemory(), nil
	}
	return a.sqliteStore(cfg.SQLite.Path)
}

// sqliteStore opens one store per database path. In-memory databases are
// never shared.
func (a *app) sqliteStore(path string) (*sqlite.Store, error) {
	key := path
	if key == "" {
		key = fmt.Sprintf(":memory:%d", len(a.stores))
	} else if s, ok := a.stores[key]; ok {
		return s, nil
	}
	s, err := sqlite.Open(path, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	a.stores[key] = s
	return s, nil
}

// Close releases every opened store.
func (a *app) Close() {
	for path, s := range a.stores {
		if err := s.Close(); err != nil {
			a.logger.Warn().Err(err).Str("path", path).Msg("failed to close sqlite store")
		}
	}
}

// setupLogger creates a zerolog logger with the specified level and format.
// Timestamps are written in tz.
func setupLogger(level string, format string, tz *time.Location) zerolog.Logger {
	// Set log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if tz == nil {
		tz = time.Local
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(tz)
	}

	// Select output format based on configuration
	var output io.Writer
	if format == "json" {
		// JSON format - structured logging for log aggregation systems
		output = os.Stderr
	} else {
		// Console format - human-readable output for development
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

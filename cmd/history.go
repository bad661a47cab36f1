package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/iocache"
	"github.com/huangsam/cistat/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackend returns the configured history backend and connection string.
// An empty backend means history is disabled.
func historyBackend() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(viper.GetString("history-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("history-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
func historySetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no caching for history commands)
	if err := iocache.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = iocache.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyStore returns the open history store or exits when history is disabled.
func historyStore() contract.HistoryStore {
	store := iocache.Manager.GetHistoryStore()
	if store == nil {
		contract.LogFatal("History is disabled", errors.New("set --history-backend to sqlite, mysql or postgresql"))
	}
	return store
}

// historyCmd focused on report history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage report history tracking and exports",
	Long: `Manage the report history used for trend tracking.

When enabled, every report run is recorded with its parameters and the
summary of every workflow and job group in it.

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show history statistics
  export  - Export history to Parquet for analytics
  clear   - Remove all history
  migrate - Run database schema migrations

Examples:
  # Track the reports of a nightly job
  cistat github --owner acme --repo app --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  cistat history export --history-backend sqlite --output-file history.parquet`,
}

// historyClearCmd clears the report history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all report history",
	Long: `Delete all stored report runs and group summaries.

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		if err := iocache.ClearHistory(cfg.HistoryBackend, iocache.GetHistoryDBFilePath(), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear report history", err)
		}
		fmt.Println("Report history cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display report history statistics and connection details",
	Long: `Show the backend, run count, last run and table sizes of the report history.

Examples:
  cistat history status --history-backend sqlite`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := historyStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports the report history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export report history to Parquet for BI tools and analytics",
	Long: `Export all report runs and group summaries to Parquet.

Requires: --output-file parameter

Examples:
  cistat history export --output-file history.parquet
  duckdb -c "SELECT * FROM read_parquet('history.parquet.report_runs.parquet') LIMIT 10"`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteHistoryExport(os.Stdout, historyStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export report history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the report history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  cistat history migrate --history-backend postgresql --history-db-connect "host=db dbname=ci"

  # Rollback to the initial state
  cistat history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

package iocache

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/cistat/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationsDir returns the embedded migrations directory of a backend.
func migrationsDir(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "migrations/sqlite", nil
	case schema.MySQLBackend:
		return "migrations/mysql", nil
	case schema.PostgreSQLBackend:
		return "migrations/postgres", nil
	default:
		return "", fmt.Errorf("migrations are not supported for %s backend", backend)
	}
}

// migrationResult describes the outcome of one migration run.
type migrationResult struct {
	From    uint
	To      uint
	Changed bool
}

// runHistoryMigrations migrates the history schema of a backend.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func runHistoryMigrations(backend schema.DatabaseBackend, connStr string, targetVersion int) (migrationResult, error) {
	dir, err := migrationsDir(backend)
	if err != nil {
		return migrationResult{}, err
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return migrationResult{}, err
	}

	// Create a migrate driver instance; it owns db from here on
	var driver database.Driver
	switch backend {
	case schema.SQLiteBackend:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case schema.MySQLBackend:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	}
	if err != nil {
		_ = db.Close()
		return migrationResult{}, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	// Get the migrations subdirectory
	migrationFS, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		_ = driver.Close()
		return migrationResult{}, fmt.Errorf("failed to access migrations directory: %w", err)
	}

	// Create source driver from embedded FS
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		_ = driver.Close()
		return migrationResult{}, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "cistat", driver)
	if err != nil {
		_ = driver.Close()
		return migrationResult{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	// Get current version
	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return migrationResult{}, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return migrationResult{}, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	result := migrationResult{From: currentVersion}
	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return result, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	result.Changed = err == nil

	newVersion, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to get migrated version: %w", err)
	}
	result.To = newVersion
	return result, nil
}

// MigrateHistory runs database migrations for the history store and reports
// the outcome on stdout. See runHistoryMigrations for targetVersion.
func MigrateHistory(backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	if backend == schema.NoneBackend || backend == "" {
		return fmt.Errorf("migrations are not supported when history is disabled")
	}

	result, err := runHistoryMigrations(backend, connStr, targetVersion)
	if err != nil {
		return err
	}

	if !result.Changed {
		fmt.Printf("No migration needed. Database is already at version %d\n", result.To)
		return nil
	}
	fmt.Printf("Successfully migrated from version %d to version %d\n", result.From, result.To)
	return nil
}

// Package database owns the SQLite schema and the Store used by every other
// package to read and write users, persons, traits, the roast corpus and
// contact messages.
package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/roastme/migrations"

	"modernc.org/sqlite"
)

func init() {
	// fold(x) lowercases with Unicode rules; SQLite's lower() only folds ASCII.
	if err := sqlite.RegisterDeterministicScalarFunction("fold", 1, foldFunc); err != nil {
		panic(fmt.Sprintf("register sqlite fold function: %v", err))
	}
}

func foldCase(s string) string {
	return strings.ToLower(s)
}

func foldFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return foldCase(v), nil
	case []byte:
		return foldCase(string(v)), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("fold: unsupported argument type %T", v)
	}
}

// connPragmas are appended to every DSN that does not carry its own query.
const connPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// MigrationStatus describes the schema after a migration run.
type MigrationStatus struct {
	Version uint
	Applied bool
}

// NewDB opens the SQLite database at dbPath and brings its schema up to date.
func NewDB(dbPath string) (*sqlx.DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	status, err := Migrate(db.DB, dbPath)
	if err != nil {
		CloseDB(db)
		return nil, err
	}

	slog.Info("Database ready", "path", dbPath, "schema_version", status.Version, "migrated", status.Applied)
	return db, nil
}

// Open connects to the SQLite database without touching the schema.
func Open(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", withPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	// One connection: sqlite serializes writers anyway and pragmas are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// CloseDB closes db, logging instead of returning the error.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
		return
	}
	slog.Debug("Database closed")
}

// Migrate applies the embedded migrations that db has not seen yet and
// reports the resulting schema version.
func Migrate(db *sql.DB, dbPath string) (MigrationStatus, error) {
	var status MigrationStatus
	if db == nil {
		return status, errors.New("migrate: nil database handle")
	}
	name := ExtractDBNameFromPath(dbPath)
	if name == "" {
		return status, errors.New("migrate: empty database name")
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return status, fmt.Errorf("migrate: open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: name})
	if err != nil {
		return status, fmt.Errorf("migrate: sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return status, fmt.Errorf("migrate: %w", err)
	}

	switch err := m.Up(); {
	case err == nil:
		status.Applied = true
	case errors.Is(err, migrate.ErrNoChange):
	default:
		return status, fmt.Errorf("migrate: apply: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return status, fmt.Errorf("migrate: read version: %w", err)
	}
	if dirty {
		return status, fmt.Errorf("migrate: schema version %d is dirty", version)
	}
	status.Version = version
	return status, nil
}

// ExtractDBNameFromPath extracts the database file path from a possibly URL-formatted path.
// This handles both simple file paths and paths with URL-style encoding.
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")

	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}

	return path
}

func withPragmas(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?" + connPragmas
}

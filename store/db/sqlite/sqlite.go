package sqlite

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/taskdeck/internal/profile"
	"github.com/hrygo/taskdeck/store"
)

//go:embed migration/LATEST.sql
var latestSchema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database file named by profile.DSN.
//
// Connection settings:
// - No shared-cache: obsolete; WAL journal mode is the better solution.
// - Foreign keys disabled: SQLite's default, kept explicit. Cascading
//   deletes are done in application transactions instead.
// - Journal mode WAL to prevent locking issues.
//
// With the modernc.org/sqlite driver each pragma must be prefixed
// with `_pragma=`.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL mode.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='task')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// Migrate applies the latest schema. Every statement is idempotent, so
// running it on an initialized database is a no-op.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}

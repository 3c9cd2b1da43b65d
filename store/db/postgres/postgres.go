package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/hrygo/taskdeck/internal/profile"
	"github.com/hrygo/taskdeck/store"
)

//go:embed migration/LATEST.sql
var latestSchema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a connection pool to the PostgreSQL server named by
// profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	postgresDB.SetMaxOpenConns(10)
	postgresDB.SetMaxIdleConns(5)
	postgresDB.SetConnMaxLifetime(30 * time.Minute)

	return &DB{db: postgresDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'task')",
	).Scan(&exists)
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

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/internal/profile"
	"github.com/hrygo/taskdeck/store"
	"github.com/hrygo/taskdeck/store/db/postgres"
	"github.com/hrygo/taskdeck/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported driver: %s", profile.Driver)
	}
}

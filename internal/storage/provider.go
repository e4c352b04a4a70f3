package storage

import (
	"strings"

	"github.com/julianstephens/constancia/internal/migration"
)

// New picks a Provider from the configured location: a PostgreSQL URL, a
// path ending in .json, ":memory:", or otherwise a SQLite database file.
func New(location string) Provider {
	switch {
	case location == ":memory:":
		return NewMemoryStore()
	case IsPostgresURL(location):
		return NewPostgresStore(location)
	case strings.HasSuffix(location, ".json"):
		return NewJSONStore(location)
	default:
		return NewSQLiteStore(location)
	}
}

// Migrator is implemented by SQL-backed providers.
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	PendingMigrations() (int, error)
	AppliedMigrations() ([]migration.Record, error)
}

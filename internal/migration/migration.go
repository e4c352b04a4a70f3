// Package migration applies the numbered SQL files under migrations/ and
// records each one in a schema_migrations history table.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrSchemaTooNew is returned when the database was migrated by a newer build.
var ErrSchemaTooNew = errors.New("database schema is newer than this build, please upgrade constancia")

// Migration is one NNN_name.sql file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Record is a row of schema_migrations.
type Record struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

// Plan compares the database against the embedded files.
type Plan struct {
	Current int
	Latest  int
	Pending []Migration
}

type dialect int

const (
	sqlite dialect = iota
	postgres
)

// bind returns the n-th bind parameter (1-based) for the driver.
func (d dialect) bind(n int) string {
	if d == postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Runner applies migrations from an fs.FS to a database.
type Runner struct {
	db      *sql.DB
	fs      fs.FS
	dialect dialect
	now     func() time.Time
}

// NewRunner returns a runner for modernc.org/sqlite.
func NewRunner(db *sql.DB, migrationFS fs.FS) *Runner {
	return &Runner{db: db, fs: migrationFS, dialect: sqlite, now: time.Now}
}

// NewPostgresRunner returns a runner for lib/pq.
func NewPostgresRunner(db *sql.DB, migrationFS fs.FS) *Runner {
	r := NewRunner(db, migrationFS)
	r.dialect = postgres
	return r
}

func (r *Runner) ensureTable() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

// CurrentVersion returns the highest applied version, 0 on a fresh database.
func (r *Runner) CurrentVersion() (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, err
	}
	var version int
	if err := r.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// Applied lists the recorded migrations, oldest first.
func (r *Runner) Applied() ([]Record, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	rows, err := r.db.Query("SELECT version, name, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var at string
		if err := rows.Scan(&rec.Version, &rec.Name, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		// A row we cannot date is still a valid row
		rec.AppliedAt, _ = time.Parse(time.RFC3339, at)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func parseFilename(name string) (int, string, error) {
	prefix, rest, ok := strings.Cut(name, "_")
	if !ok {
		return 0, "", fmt.Errorf("invalid migration filename format: %s (expected NNN_name.sql)", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, "", fmt.Errorf("invalid version number in filename %s: %w", name, err)
	}
	if version < 1 {
		return 0, "", fmt.Errorf("invalid version number in filename %s: version must be at least 1", name)
	}
	return version, strings.TrimSuffix(rest, ".sql"), nil
}

// Files returns the embedded migrations sorted by version.
func (r *Runner) Files() ([]Migration, error) {
	entries, err := fs.ReadDir(r.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, name, err := parseFilename(e.Name())
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(r.fs, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", e.Name(), err)
		}
		files = append(files, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	for i := 1; i < len(files); i++ {
		if files[i].Version == files[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", files[i].Version)
		}
	}
	return files, nil
}

// Plan works out which files still need applying. It fails with
// ErrSchemaTooNew when the database is ahead of the files.
func (r *Runner) Plan() (Plan, error) {
	current, err := r.CurrentVersion()
	if err != nil {
		return Plan{}, err
	}
	files, err := r.Files()
	if err != nil {
		return Plan{}, err
	}

	p := Plan{Current: current}
	if len(files) > 0 {
		p.Latest = files[len(files)-1].Version
	}
	if current > p.Latest {
		return p, fmt.Errorf("%w (database %d, supported %d)", ErrSchemaTooNew, current, p.Latest)
	}
	for _, m := range files {
		if m.Version > current {
			p.Pending = append(p.Pending, m)
		}
	}
	return p, nil
}

// ValidateVersion reports ErrSchemaTooNew without applying anything.
func (r *Runner) ValidateVersion() error {
	_, err := r.Plan()
	return err
}

// Pending reports how many migrations have not been applied yet.
func (r *Runner) Pending() (int, error) {
	p, err := r.Plan()
	if err != nil {
		return 0, err
	}
	return len(p.Pending), nil
}

// apply runs one migration and its history row in a single transaction.
func (r *Runner) apply(m Migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", m.Version, err)
	}
	if _, err := tx.Exec(m.SQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
	}

	insert := fmt.Sprintf("INSERT INTO schema_migrations (version, name, applied_at) VALUES (%s, %s, %s)",
		r.dialect.bind(1), r.dialect.bind(2), r.dialect.bind(3))
	if _, err := tx.Exec(insert, m.Version, m.Name, r.now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}

// ApplyMigrations applies every pending migration in order and returns how
// many were applied. It stops at the first failure.
func (r *Runner) ApplyMigrations(logFn func(string)) (int, error) {
	if logFn == nil {
		logFn = func(string) {}
	}

	p, err := r.Plan()
	if err != nil {
		return 0, err
	}
	if p.Latest == 0 {
		logFn("No migration files found")
		return 0, nil
	}
	if len(p.Pending) == 0 {
		logFn(fmt.Sprintf("Database schema is up to date (version %d)", p.Current))
		return 0, nil
	}

	logFn(fmt.Sprintf("Migrating schema from version %d to %d", p.Current, p.Latest))
	start := time.Now()
	for i, m := range p.Pending {
		logFn(fmt.Sprintf("  Applying migration %d: %s", m.Version, m.Name))
		if err := r.apply(m); err != nil {
			return i, err
		}
	}
	logFn(fmt.Sprintf("Applied %d migration(s) in %v", len(p.Pending), time.Since(start).Round(time.Millisecond)))
	return len(p.Pending), nil
}

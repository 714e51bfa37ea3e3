// Package migrate applies versioned SQL schema migrations to a database/sql connection.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Dialect selects the SQL flavour used for the version table
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB represents either a database connection or transaction
type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Provider supplies the migrations to apply
type Provider interface {
	Migrations() ([]Migration, error)
}

// Migrator handles the execution of migrations
type Migrator struct {
	db       *sql.DB
	provider Provider
	table    string
	dialect  Dialect
	logf     func(format string, args ...any)
}

// Option customizes a Migrator
type Option func(*Migrator)

// WithTable sets the name of the version tracking table
func WithTable(name string) Option {
	return func(m *Migrator) { m.table = name }
}

// WithDialect sets the SQL dialect of the database
func WithDialect(d Dialect) Option {
	return func(m *Migrator) { m.dialect = d }
}

// WithLogger reports applied migrations through logf
func WithLogger(logf func(format string, args ...any)) Option {
	return func(m *Migrator) { m.logf = logf }
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *sql.DB, provider Provider, opts ...Option) *Migrator {
	m := &Migrator{
		db:       db,
		provider: provider,
		table:    "schema_migrations",
		dialect:  DialectSQLite,
		logf:     func(string, ...any) {},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// MigrateUp runs all pending migrations up to the latest version
func (m *Migrator) MigrateUp() error {
	return m.MigrateTo(-1)
}

// MigrateTo runs migrations up or down to reach a specific version. -1 means latest.
func (m *Migrator) MigrateTo(target int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}

	migrations, err := m.sorted()
	if err != nil {
		return err
	}
	if target == -1 {
		target = 0
		if len(migrations) > 0 {
			target = migrations[len(migrations)-1].Version
		}
	}

	if target < current {
		return m.MigrateDown(target)
	}
	for _, mg := range migrations {
		if mg.Version > current && mg.Version <= target {
			if err := m.execute(mg, true); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", mg.Version, err)
			}
		}
	}
	return nil
}

// MigrateDown reverts migrations above the target version
func (m *Migrator) MigrateDown(target int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	if target >= current {
		return fmt.Errorf("target version %d must be less than current version %d", target, current)
	}

	migrations, err := m.sorted()
	if err != nil {
		return err
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		mg := migrations[i]
		if mg.Version > target && mg.Version <= current {
			if err := m.execute(mg, false); err != nil {
				return fmt.Errorf("failed to roll back migration %d: %w", mg.Version, err)
			}
		}
	}
	return nil
}

// CurrentVersion returns the highest applied migration version
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.createTable(); err != nil {
		return 0, err
	}
	var version int
	err := m.db.QueryRow(fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", m.table)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// Pending returns migrations that haven't been applied yet
func (m *Migrator) Pending() ([]Migration, error) {
	current, err := m.CurrentVersion()
	if err != nil {
		return nil, err
	}
	migrations, err := m.sorted()
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mg := range migrations {
		if mg.Version > current {
			pending = append(pending, mg)
		}
	}
	return pending, nil
}

func (m *Migrator) sorted() ([]Migration, error) {
	migrations, err := m.provider.Migrations()
	if err != nil {
		return nil, fmt.Errorf("failed to get migrations: %w", err)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Migrator) createTable() error {
	ts := "DATETIME"
	if m.dialect == DialectPostgres {
		ts = "TIMESTAMP"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		applied_at %s DEFAULT CURRENT_TIMESTAMP
	)`, m.table, ts)
	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

func (m *Migrator) setVersion(db DB, version int) error {
	var err error
	switch {
	case version == 0:
		_, err = db.Exec(fmt.Sprintf("DELETE FROM %s", m.table))
	case m.dialect == DialectPostgres:
		_, err = db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE version > $1`, m.table), version)
		if err == nil {
			_, err = db.Exec(fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)
				ON CONFLICT (version) DO UPDATE SET applied_at = CURRENT_TIMESTAMP`, m.table), version)
		}
	default:
		_, err = db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE version > ?`, m.table), version)
		if err == nil {
			_, err = db.Exec(fmt.Sprintf(`INSERT OR REPLACE INTO %s (version) VALUES (?)`, m.table), version)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	return nil
}

// execute runs a single migration up or down inside a transaction
func (m *Migrator) execute(mg Migration, up bool) error {
	stmt, direction, version := mg.Up, "up", mg.Version
	if !up {
		stmt, direction, version = mg.Down, "down", mg.Version-1
	}
	if stmt == "" {
		return fmt.Errorf("migration %d has no %s SQL", mg.Version, direction)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if err := m.setVersion(tx, version); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	m.logf("applied migration %d (%s) %s", mg.Version, mg.Name, direction)
	return nil
}

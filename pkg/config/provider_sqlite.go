package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/chrissnell/cirquemetrics/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const defaultConfigName = "default"

// MigrationsTable records the schema version of the configuration database
const MigrationsTable = "config_schema_migrations"

// Migrations returns the schema migrations of the configuration database
func Migrations() migrate.Provider {
	return migrate.NewFSProvider(migrations, "migrations")
}

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the configuration database and creates its tables if needed
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	m := migrate.NewMigrator(db, Migrations(), migrate.WithTable(MigrationsTable))
	if err := m.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate configuration database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	var configID int64
	err := s.db.QueryRow(`SELECT id FROM configs WHERE name = ?`, defaultConfigName).Scan(&configID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no configuration stored in %s", s.dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}

	if err := s.loadLogging(configID, &config.Logging); err != nil {
		return nil, fmt.Errorf("failed to load logging config: %w", err)
	}
	if err := s.loadAnalysis(configID, &config.Analysis); err != nil {
		return nil, fmt.Errorf("failed to load analysis config: %w", err)
	}
	if err := s.loadStorage(configID, &config.Storage); err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	if config.REST, err = s.loadREST(configID); err != nil {
		return nil, fmt.Errorf("failed to load REST server config: %w", err)
	}
	if err := s.loadOutput(configID, &config.Output); err != nil {
		return nil, fmt.Errorf("failed to load output config: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (s *SQLiteProvider) loadLogging(configID int64, l *LoggingData) error {
	var file sql.NullString
	var maxSize, maxBackups, maxAge sql.NullInt64
	err := s.db.QueryRow(`
		SELECT debug, file, max_size_mb, max_backups, max_age_days, compress
		FROM logging_configs WHERE config_id = ?`, configID).
		Scan(&l.Debug, &file, &maxSize, &maxBackups, &maxAge, &l.Compress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	l.File = file.String
	l.MaxSizeMB = int(maxSize.Int64)
	l.MaxBackups = int(maxBackups.Int64)
	l.MaxAgeDays = int(maxAge.Int64)
	return nil
}

func (s *SQLiteProvider) loadAnalysis(configID int64, a *AnalysisData) error {
	var epsilon, minHeight, clusterRadius, cellsize sql.NullFloat64
	var count, workers sql.NullInt64
	var mode sql.NullString
	var halves sql.NullBool
	err := s.db.QueryRow(`
		SELECT epsilon, min_height, turning_point_count, cluster_radius, cellsize,
		       boundary_mode, half_profiles, workers
		FROM analysis_configs WHERE config_id = ?`, configID).
		Scan(&epsilon, &minHeight, &count, &clusterRadius, &cellsize, &mode, &halves, &workers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	a.Epsilon = epsilon.Float64
	a.MinHeight = minHeight.Float64
	a.TurningPointCount = int(count.Int64)
	a.ClusterRadius = clusterRadius.Float64
	a.CellSize = cellsize.Float64
	a.BoundaryMode = mode.String
	a.Workers = int(workers.Int64)
	if halves.Valid {
		v := halves.Bool
		a.HalfProfiles = &v
	}
	return nil
}

func (s *SQLiteProvider) loadStorage(configID int64, st *StorageData) error {
	rows, err := s.db.Query(`
		SELECT backend_type, path, connection_string
		FROM storage_configs WHERE config_id = ? ORDER BY backend_type`, configID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var backendType string
		var path, connectionString sql.NullString
		if err := rows.Scan(&backendType, &path, &connectionString); err != nil {
			return fmt.Errorf("failed to scan storage config row: %w", err)
		}
		switch backendType {
		case "sqlite":
			st.SQLite = &SQLiteData{Path: path.String}
		case "postgres":
			st.Postgres = &PostgresData{ConnectionString: connectionString.String}
		default:
			return fmt.Errorf("unknown storage backend %q", backendType)
		}
	}
	return rows.Err()
}

func (s *SQLiteProvider) loadREST(configID int64) (*RESTServerData, error) {
	var cert, key, listenAddr, healthInterval sql.NullString
	var port, maxBody sql.NullInt64
	err := s.db.QueryRow(`
		SELECT cert, key, port, listen_addr, max_body_bytes, health_interval
		FROM rest_configs WHERE config_id = ?`, configID).
		Scan(&cert, &key, &port, &listenAddr, &maxBody, &healthInterval)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &RESTServerData{
		Cert:           cert.String,
		Key:            key.String,
		Port:           int(port.Int64),
		ListenAddr:     listenAddr.String,
		MaxBodyBytes:   maxBody.Int64,
		HealthInterval: healthInterval.String,
	}, nil
}

func (s *SQLiteProvider) loadOutput(configID int64, o *OutputData) error {
	var dir, format sql.NullString
	err := s.db.QueryRow(`SELECT directory, format FROM output_configs WHERE config_id = ?`, configID).
		Scan(&dir, &format)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	o.Directory = dir.String
	o.Format = format.String
	return nil
}

// IsReadOnly returns false since the database can be updated with SaveConfig
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration
func (s *SQLiteProvider) SaveConfig(c *ConfigData) error {
	if err := c.Validate(); err != nil {
		return err
	}

	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.getOrCreateConfigID(tx)
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}

	for _, table := range []string{"logging_configs", "analysis_configs", "storage_configs", "rest_configs", "output_configs"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE config_id = ?", configID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	l := c.Logging
	if _, err := tx.Exec(`
		INSERT INTO logging_configs (config_id, debug, file, max_size_mb, max_backups, max_age_days, compress)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		configID, l.Debug, nullString(l.File), l.MaxSizeMB, l.MaxBackups, l.MaxAgeDays, l.Compress); err != nil {
		return fmt.Errorf("failed to insert logging config: %w", err)
	}

	a := c.Analysis
	var halves sql.NullBool
	if a.HalfProfiles != nil {
		halves = sql.NullBool{Bool: *a.HalfProfiles, Valid: true}
	}
	if _, err := tx.Exec(`
		INSERT INTO analysis_configs (config_id, epsilon, min_height, turning_point_count, cluster_radius,
		                              cellsize, boundary_mode, half_profiles, workers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		configID, a.Epsilon, a.MinHeight, a.TurningPointCount, a.ClusterRadius,
		a.CellSize, nullString(a.BoundaryMode), halves, a.Workers); err != nil {
		return fmt.Errorf("failed to insert analysis config: %w", err)
	}

	if c.Storage.SQLite != nil {
		if _, err := tx.Exec(`INSERT INTO storage_configs (config_id, backend_type, path) VALUES (?, 'sqlite', ?)`,
			configID, c.Storage.SQLite.Path); err != nil {
			return fmt.Errorf("failed to insert sqlite storage config: %w", err)
		}
	}
	if c.Storage.Postgres != nil {
		if _, err := tx.Exec(`INSERT INTO storage_configs (config_id, backend_type, connection_string) VALUES (?, 'postgres', ?)`,
			configID, c.Storage.Postgres.ConnectionString); err != nil {
			return fmt.Errorf("failed to insert postgres storage config: %w", err)
		}
	}

	if r := c.REST; r != nil {
		if _, err := tx.Exec(`
			INSERT INTO rest_configs (config_id, cert, key, port, listen_addr, max_body_bytes, health_interval)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			configID, nullString(r.Cert), nullString(r.Key), r.Port, nullString(r.ListenAddr),
			r.MaxBodyBytes, nullString(r.HealthInterval)); err != nil {
			return fmt.Errorf("failed to insert REST server config: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO output_configs (config_id, directory, format) VALUES (?, ?, ?)`,
		configID, nullString(c.Output.Directory), nullString(c.Output.Format)); err != nil {
		return fmt.Errorf("failed to insert output config: %w", err)
	}

	// Commit transaction
	return tx.Commit()
}

func (s *SQLiteProvider) getOrCreateConfigID(tx *sql.Tx) (int64, error) {
	if _, err := tx.Exec(`
		INSERT INTO configs (name) VALUES (?)
		ON CONFLICT(name) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`, defaultConfigName); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRow(`SELECT id FROM configs WHERE name = ?`, defaultConfigName).Scan(&id)
	return id, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

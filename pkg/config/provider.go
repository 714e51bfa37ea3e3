// Package config loads cirquemetrics settings from YAML files or a SQLite database.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Logging  LoggingData     `json:"logging"`
	Analysis AnalysisData    `json:"analysis"`
	Storage  StorageData     `json:"storage,omitempty"`
	REST     *RESTServerData `json:"rest,omitempty"`
	Output   OutputData      `json:"output"`
}

// LoggingData configures the log output
type LoggingData struct {
	Debug      bool   `json:"debug,omitempty"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

// AnalysisData holds the morphometric analysis settings
type AnalysisData struct {
	Epsilon           float64 `json:"epsilon"`
	MinHeight         float64 `json:"min_height"`
	TurningPointCount int     `json:"turning_point_count"`
	ClusterRadius     float64 `json:"cluster_radius,omitempty"`
	CellSize          float64 `json:"cellsize"`
	BoundaryMode      string  `json:"boundary_mode"`
	HalfProfiles      *bool   `json:"half_profiles,omitempty"`
	Workers           int     `json:"workers,omitempty"`
}

// HalfProfilesEnabled reports whether half-profile metrics are computed, defaulting to true
func (a AnalysisData) HalfProfilesEnabled() bool {
	return a.HalfProfiles == nil || *a.HalfProfiles
}

// StorageData holds the configuration for the report storage backends
type StorageData struct {
	SQLite   *SQLiteData   `json:"sqlite,omitempty"`
	Postgres *PostgresData `json:"postgres,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type PostgresData struct {
	ConnectionString string `json:"connection_string"`
}

// RESTServerData configures the analysis API server
type RESTServerData struct {
	Cert           string `json:"cert,omitempty"`
	Key            string `json:"key,omitempty"`
	Port           int    `json:"port,omitempty"`
	ListenAddr     string `json:"listen_addr,omitempty"`
	MaxBodyBytes   int64  `json:"max_body_bytes,omitempty"`
	HealthInterval string `json:"health_interval,omitempty"`
}

// HealthCheckInterval parses the storage health check interval, defaulting to one minute
func (r RESTServerData) HealthCheckInterval() (time.Duration, error) {
	if r.HealthInterval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(r.HealthInterval)
}

// OutputData configures where the batch CLI writes its reports
type OutputData struct {
	Directory string `json:"directory,omitempty"`
	Format    string `json:"format,omitempty"`
}

const (
	DefaultEpsilon      = 0.01
	DefaultCellSize     = 10.0
	DefaultPort         = 8080
	DefaultMaxBodyBytes = 64 << 20
	DefaultOutputFormat = "csv"
)

// ApplyDefaults fills in every unset value
func (c *ConfigData) ApplyDefaults() {
	if c.Analysis.Epsilon == 0 {
		c.Analysis.Epsilon = DefaultEpsilon
	}
	if c.Analysis.TurningPointCount == 0 {
		c.Analysis.TurningPointCount = 1
	}
	if c.Analysis.CellSize == 0 {
		c.Analysis.CellSize = DefaultCellSize
	}
	if c.Analysis.BoundaryMode == "" {
		c.Analysis.BoundaryMode = "none"
	}
	if c.Output.Format == "" {
		c.Output.Format = DefaultOutputFormat
	}
	if c.REST != nil {
		if c.REST.Port == 0 {
			c.REST.Port = DefaultPort
		}
		if c.REST.MaxBodyBytes == 0 {
			c.REST.MaxBodyBytes = DefaultMaxBodyBytes
		}
	}
}

// Validate checks the configuration for values the analysis cannot run with
func (c *ConfigData) Validate() error {
	var errs []error
	a := c.Analysis
	if a.Epsilon < 0 {
		errs = append(errs, fmt.Errorf("analysis.epsilon must not be negative, got %v", a.Epsilon))
	}
	if a.MinHeight < 0 {
		errs = append(errs, fmt.Errorf("analysis.min-height must not be negative, got %v", a.MinHeight))
	}
	if a.TurningPointCount < 0 {
		errs = append(errs, fmt.Errorf("analysis.turning-point-count must not be negative, got %d", a.TurningPointCount))
	}
	if a.CellSize < 0 {
		errs = append(errs, fmt.Errorf("analysis.cellsize must not be negative, got %v", a.CellSize))
	}
	if a.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must not be negative, got %d", a.Workers))
	}
	switch a.BoundaryMode {
	case "", "none", "highest", "convex":
	default:
		errs = append(errs, fmt.Errorf("analysis.boundary-mode must be none, highest or convex, got %q", a.BoundaryMode))
	}
	if c.Storage.SQLite != nil && c.Storage.SQLite.Path == "" {
		errs = append(errs, errors.New("storage.sqlite.path is required"))
	}
	if c.Storage.Postgres != nil && c.Storage.Postgres.ConnectionString == "" {
		errs = append(errs, errors.New("storage.postgres.connection-string is required"))
	}
	if c.REST != nil {
		if (c.REST.Cert == "") != (c.REST.Key == "") {
			errs = append(errs, errors.New("rest.cert and rest.key must be set together"))
		}
		if _, err := c.REST.HealthCheckInterval(); err != nil {
			errs = append(errs, fmt.Errorf("rest.health-interval: %w", err))
		}
	}
	return errors.Join(errs...)
}

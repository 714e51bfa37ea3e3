package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}
	return ParseYAML(cfgFile)
}

// ParseYAML decodes a YAML document, applies defaults and validates the result
func ParseYAML(b []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Logging  LoggingYAML     `yaml:"logging,omitempty"`
		Analysis AnalysisYAML    `yaml:"analysis,omitempty"`
		Storage  StorageYAML     `yaml:"storage,omitempty"`
		REST     *RESTServerYAML `yaml:"rest,omitempty"`
		Output   OutputYAML      `yaml:"output,omitempty"`
	}

	if err := yaml.UnmarshalStrict(b, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Logging: LoggingData(yamlConfig.Logging),
		Analysis: AnalysisData{
			Epsilon:           yamlConfig.Analysis.Epsilon,
			MinHeight:         yamlConfig.Analysis.MinHeight,
			TurningPointCount: yamlConfig.Analysis.TurningPointCount,
			ClusterRadius:     yamlConfig.Analysis.ClusterRadius,
			CellSize:          yamlConfig.Analysis.CellSize,
			BoundaryMode:      yamlConfig.Analysis.BoundaryMode,
			HalfProfiles:      yamlConfig.Analysis.HalfProfiles,
			Workers:           yamlConfig.Analysis.Workers,
		},
		Output: OutputData(yamlConfig.Output),
	}

	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: yamlConfig.Storage.SQLite.Path}
	}
	if yamlConfig.Storage.Postgres != nil {
		config.Storage.Postgres = &PostgresData{
			ConnectionString: yamlConfig.Storage.Postgres.ConnectionString,
		}
	}
	if yamlConfig.REST != nil {
		rest := RESTServerData(*yamlConfig.REST)
		config.REST = &rest
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with YAML tags

type LoggingYAML struct {
	Debug      bool   `yaml:"debug,omitempty"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

type AnalysisYAML struct {
	Epsilon           float64 `yaml:"epsilon,omitempty"`
	MinHeight         float64 `yaml:"min-height,omitempty"`
	TurningPointCount int     `yaml:"turning-point-count,omitempty"`
	ClusterRadius     float64 `yaml:"cluster-radius,omitempty"`
	CellSize          float64 `yaml:"cellsize,omitempty"`
	BoundaryMode      string  `yaml:"boundary-mode,omitempty"`
	HalfProfiles      *bool   `yaml:"half-profiles,omitempty"`
	Workers           int     `yaml:"workers,omitempty"`
}

type StorageYAML struct {
	SQLite   *SQLiteYAML   `yaml:"sqlite,omitempty"`
	Postgres *PostgresYAML `yaml:"postgres,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type PostgresYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type RESTServerYAML struct {
	Cert           string `yaml:"cert,omitempty"`
	Key            string `yaml:"key,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	ListenAddr     string `yaml:"listen-addr,omitempty"`
	MaxBodyBytes   int64  `yaml:"max-body-bytes,omitempty"`
	HealthInterval string `yaml:"health-interval,omitempty"`
}

type OutputYAML struct {
	Directory string `yaml:"directory,omitempty"`
	Format    string `yaml:"format,omitempty"`
}

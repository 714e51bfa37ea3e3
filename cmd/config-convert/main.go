package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/cirquemetrics/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	// Load YAML configuration
	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	// Remove existing SQLite file if force is specified
	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	if err := convert(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration into SQLite: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

// convert creates the configuration database and stores configData in it
func convert(dbPath string, configData *config.ConfigData) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Opening the provider creates the schema
	provider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite provider: %w", err)
	}
	defer provider.Close()

	if err := provider.SaveConfig(configData); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func printConfigSummary(c *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")
	a := c.Analysis
	fmt.Printf("Analysis:\n")
	fmt.Printf("  epsilon %v, min-height %v, turning points %d, cellsize %v\n",
		a.Epsilon, a.MinHeight, a.TurningPointCount, a.CellSize)
	fmt.Printf("  boundary mode %s, half profiles %v, workers %d\n",
		a.BoundaryMode, a.HalfProfilesEnabled(), a.Workers)

	fmt.Printf("\nStorage Backends:\n")
	if c.Storage.SQLite != nil {
		fmt.Printf("  - SQLite: %s\n", c.Storage.SQLite.Path)
	}
	if c.Storage.Postgres != nil {
		fmt.Printf("  - PostgreSQL: %s\n", c.Storage.Postgres.ConnectionString)
	}

	if c.REST != nil {
		fmt.Printf("\nREST server: %s:%d\n", c.REST.ListenAddr, c.REST.Port)
	}
	fmt.Printf("\nOutput: %s (%s)\n", c.Output.Directory, c.Output.Format)
}

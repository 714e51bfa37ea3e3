package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/chrissnell/cirquemetrics/internal/storage/sqlite"
	"github.com/chrissnell/cirquemetrics/pkg/config"
	"github.com/chrissnell/cirquemetrics/pkg/migrate"
	_ "modernc.org/sqlite" // SQLite driver
)

func main() {
	var (
		dbPath        = flag.String("db", "", "Path to the SQLite database")
		schema        = flag.String("schema", "reports", "Schema to migrate: reports or config")
		command       = flag.String("command", "up", "Migration command: up, down, to, version, status")
		targetVersion = flag.String("target", "", "Target version for down/to commands")
		helpFlag      = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -db flag is required\n")
		showHelp()
		os.Exit(1)
	}

	var opts []migrate.Option
	var provider migrate.Provider
	switch *schema {
	case "reports":
		provider = sqlite.Migrations()
	case "config":
		provider = config.Migrations()
		opts = append(opts, migrate.WithTable(config.MigrationsTable))
	default:
		fmt.Fprintf(os.Stderr, "Unknown schema: %s\n", *schema)
		os.Exit(1)
	}

	// Open database connection
	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Test the connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	migrator := migrate.NewMigrator(db, provider, opts...)

	// Execute command
	switch *command {
	case "up":
		err = migrator.MigrateUp()
	case "down", "to":
		if *targetVersion == "" {
			fmt.Fprintf(os.Stderr, "Error: -target flag is required for %s command\n", *command)
			os.Exit(1)
		}
		target, convErr := strconv.Atoi(*targetVersion)
		if convErr != nil {
			log.Fatalf("Invalid target version: %v", convErr)
		}
		if *command == "down" {
			err = migrator.MigrateDown(target)
		} else {
			err = migrator.MigrateTo(target)
		}
	case "version":
		version, err := migrator.CurrentVersion()
		if err != nil {
			log.Fatalf("Failed to get current version: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
		return
	case "status":
		err = showStatus(migrator)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Migration command failed: %v", err)
	}

	fmt.Println("Migration completed successfully")
}

func showStatus(migrator *migrate.Migrator) error {
	currentVersion, err := migrator.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	pending, err := migrator.Pending()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	fmt.Printf("Current version: %d\n", currentVersion)
	fmt.Printf("Pending migrations: %d\n", len(pending))

	if len(pending) > 0 {
		fmt.Println("\nPending migrations:")
		for _, migration := range pending {
			fmt.Printf("  %d: %s\n", migration.Version, migration.Name)
		}
	}

	return nil
}

func showHelp() {
	fmt.Println("Database Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -db string         Path to the SQLite database (required)")
	fmt.Println("  -schema string     Schema to migrate: reports or config (default: reports)")
	fmt.Println("  -command string    Migration command (default: up)")
	fmt.Println("  -target string     Target version for down/to commands")
	fmt.Println("  -help              Show this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                 Apply all pending migrations")
	fmt.Println("  down               Roll back to target version")
	fmt.Println("  to                 Migrate to specific version (up or down)")
	fmt.Println("  version            Show current migration version")
	fmt.Println("  status             Show migration status")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  migrate -db reports.db -command up")
	fmt.Println("  migrate -db reports.db -command down -target 1")
	fmt.Println("  migrate -db config.db -schema config -command status")
}

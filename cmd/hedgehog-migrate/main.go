// Package main is the entry point for the Hedgehog database migration tool.
// It applies the embedded schema to PostgreSQL or SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hedgehog-panel/hedgehog/internal/app"
	"github.com/hedgehog-panel/hedgehog/internal/config"
	"github.com/hedgehog-panel/hedgehog/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "up", "down", "status", "version":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		configPath := fs.String("config", "", "path to the configuration file")
		_ = fs.Parse(os.Args[2:])

		if err := migrate(command, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "hedgehog-migrate %s: %v\n", command, err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func migrate(command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	ctx := context.Background()

	store, err := app.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Database.Close()

	migrator, err := app.NewMigrator(store, logger)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return migrator.Up(ctx)
	case "down":
		return migrator.Down(ctx)
	case "status":
		return migrator.Status(ctx)
	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Schema version: %d\n", version)
	}
	return nil
}

func printUsage() {
	fmt.Printf("Hedgehog Migration Tool %s (%s, built %s)\n\n", Version, GitCommit, BuildTime)
	fmt.Println(`Usage:
  hedgehog-migrate <command> [-config path]

Commands:
  up          Apply all pending migrations
  down        Roll back the last migration
  status      Show the state of every migration
  version     Print the current schema version
  help        Show this help message

Configuration is read from config.yaml (., ./configs, /etc/hedgehog) and
HEDGEHOG_* environment variables; DB_HOST, DB_PORT, DB_NAME, DB_USER and
DB_PASSWORD are honored as fallbacks.

Examples:
  hedgehog-migrate up
  hedgehog-migrate status -config /etc/hedgehog/config.yaml
  HEDGEHOG_DATABASE_DRIVER=sqlite hedgehog-migrate up`)
}

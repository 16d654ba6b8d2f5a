// Package main is the entry point for the Hedgehog admin CLI.
// This tool manages user accounts and servers directly against the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hedgehog-panel/hedgehog/internal/app"
	"github.com/hedgehog-panel/hedgehog/internal/config"
	"github.com/hedgehog-panel/hedgehog/internal/logging"
	"github.com/hedgehog-panel/hedgehog/internal/pkg/crypto"
	"github.com/hedgehog-panel/hedgehog/internal/repository"
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
	var err error

	switch command {
	case "version":
		fmt.Printf("Hedgehog Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		err = runUser(os.Args[2:], os.Stdout)

	case "server":
		err = runServer(os.Args[2:], os.Stdout)

	case "keygen":
		var key string
		if key, err = crypto.GenerateHexKey(); err == nil {
			fmt.Println(key)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "hedgehog-admin %s: %v\n", command, err)
		os.Exit(1)
	}
}

// env is an open store with the services built on it.
type env struct {
	store    *repository.Store
	services *app.Services
}

// openEnv loads configuration and opens the store. Logs go to stderr so
// command output stays clean.
func openEnv(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	store, err := app.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &env{
		store:    store,
		services: app.NewServices(store, cfg.Auth.BcryptCost, logger),
	}, nil
}

func (e *env) Close() error {
	return e.store.Database.Close()
}

// newFlagSet returns a flag set carrying the shared -config flag.
func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "path to the configuration file")
	return fs, configPath
}

func printUsage() {
	fmt.Println(`Hedgehog Admin CLI

Usage:
  hedgehog-admin <command> [arguments]

Commands:
  user        Manage users (create, list, delete, passwd)
  server      Manage servers (create, list, delete)
  keygen      Print a new random session key (64 hex characters)
  version     Print version information
  help        Show this help message

Examples:
  hedgehog-admin user create -username alice -email alice@example.com
  hedgehog-admin user create -username bob -email bob@example.com -generate-password
  hedgehog-admin user passwd -username alice
  hedgehog-admin server create -name web-01 -owner alice
  hedgehog-admin server list -limit 20
  hedgehog-admin keygen

Every subcommand accepts -config <path>.`)
}

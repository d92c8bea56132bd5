package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

const usage = `usage: migrate <command> [args]

commands:
  up                 apply all pending migrations
  up-to VERSION      apply migrations up to VERSION
  down               roll back the latest migration
  down-to VERSION    roll back to VERSION
  redo               roll back and re-apply the latest migration
  status             print the status of every migration
  version            print the current schema version
  create NAME        write a new SQL migration into ./migrations`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", usage)
	}
	command, arguments := args[0], args[1:]

	// create writes to the source tree and needs no connection
	if command == "create" {
		if len(arguments) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		if err := goose.Create(nil, "./migrations", arguments[0], "sql"); err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	switch command {
	case "up", "up-to", "down", "down-to", "redo", "status", "version":
		if err := goose.RunContext(ctx, command, db, ".", arguments...); err != nil {
			return fmt.Errorf("%s failed: %w", command, err)
		}
	default:
		return fmt.Errorf("unknown command: %s\n\n%s", command, usage)
	}

	fmt.Printf("migrate %s: done\n", command)
	return nil
}

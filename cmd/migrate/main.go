package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/larder/backend/internal/infrastructure/config"
	"github.com/larder/backend/internal/infrastructure/logger"
	"github.com/larder/backend/internal/infrastructure/migration"
	"github.com/larder/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	var (
		migrationsPath string
		configFile     string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&configFile, "config", "", "Path to a TOML config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	source := migration.SourceFS(migrationsPath, migrations.FS)
	sourceName := "embedded"
	if migrationsPath != "" {
		sourceName = migrationsPath
	}
	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("source", sourceName),
	)

	// list only reads the source
	if command == "list" {
		versions, err := migration.Versions(source)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(versions) == 0 {
			log.Info("No migrations found")
			return
		}
		log.Info("Available migrations", zap.Int("count", len(versions)))
		for _, v := range versions {
			fmt.Println("  -", v)
		}
		return
	}

	var cfg *config.Config
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, source, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "goto":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := m.GoTo(uint(version)); err != nil {
			log.Fatal("Migration goto failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}

	case "status":
		status, err := migration.StatusOf(m, source)
		if err != nil {
			log.Fatal("Failed to get status", zap.Error(err))
		}
		log.Info("Migration status",
			zap.Uint("version", status.Version),
			zap.Bool("dirty", status.Dirty),
			zap.Int("pending", len(status.Pending)),
		)
		for _, v := range status.Pending {
			fmt.Println("  pending:", v)
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		log.Warn("Forcing migration version - use with caution!")
		if err := m.Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Larder Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  status                Show current version and pending migrations
  force <version>       Force set migration version (use with caution)
  list                  List available migrations

Flags:
  -path string          Read migrations from a directory (default: embedded)
  -config string        TOML config file (default: ./config.toml or /etc/larder/config.toml)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  LARDER_DATABASE_HOST, LARDER_DATABASE_PORT, LARDER_DATABASE_USER,
  LARDER_DATABASE_PASSWORD, LARDER_DATABASE_DBNAME, LARDER_DATABASE_SSLMODE

Examples:
  # Apply all pending migrations
  migrate up

  # Roll back the last migration
  migrate step -1

  # Show pending migrations
  migrate status`)
}

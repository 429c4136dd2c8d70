package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/saransh1220/foodhub/internal/shared/infrastructure/config"
	"github.com/saransh1220/foodhub/internal/shared/logger"
	"github.com/saransh1220/foodhub/pkg/migration"
)

const usage = "usage: migrate up | down | force <version> | version"

// migrator is satisfied by *migration.Runner.
type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Version() (uint, bool, error)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations only apply to postgres, driver is %q", cfg.Database.Driver)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	runner := migration.NewRunner(&migration.Config{
		MigrationsPath: cfg.Database.MigrationsPath,
		DatabaseURL:    cfg.Database.Postgres.URL(),
		Logger:         log,
	})
	return execute(runner, args, out)
}

func execute(m migrator, args []string, out io.Writer) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "force":
		if len(args) != 2 {
			return errors.New(usage)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil || version < 0 {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.Force(version)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q; %s", args[0], usage)
	}
}

// Command migrate applies or rolls back the schema in migrations/.
//
//	migrate up
//	migrate down 1
//	migrate version
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	env "github.com/caarlos0/env/v11"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

type config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	dir := flag.String("path", "migrations", "directory holding *.up.sql and *.down.sql")
	flag.Parse()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init("wallet-migrate", cfg.LogLevel, cfg.AppEnv)

	if err := run(cfg.DatabaseURL, *dir, flag.Args()); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(databaseURL, dir string, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: migrate [-path dir] up|down N|version")
	}

	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		if len(args) < 2 {
			return errors.New("down needs a step count")
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil || n <= 0 {
			return fmt.Errorf("down: invalid step count %q", args[1])
		}
		err = m.Steps(-n)
	case "version":
		v, dirty, vErr := m.Version()
		if vErr != nil && !errors.Is(vErr, migrate.ErrNilVersion) {
			return fmt.Errorf("version: %w", vErr)
		}
		slog.Info("schema version", "version", v, "dirty", dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	v, _, _ := m.Version()
	slog.Info("migration applied", "command", args[0], "version", v)
	return nil
}

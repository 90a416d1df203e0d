package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/georgemunganga/traceability-backend/internal/app"
	"github.com/georgemunganga/traceability-backend/internal/config"
	"github.com/georgemunganga/traceability-backend/internal/logging"
	"github.com/georgemunganga/traceability-backend/internal/platform/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cliApp := &cli.App{
		Name:   "traceability",
		Usage:  "product provenance registry",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply or revert SQL schema migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply pending migrations", Action: migrateUp},
					{Name: "down", Usage: "revert every migration", Action: migrateDown},
				},
			},
			{
				Name:   "export",
				Usage:  "write a registry snapshot to the configured sink",
				Action: exportSnapshot,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("traceability exited")
	}
}

func setup() (config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.Development())
	return cfg, logger, nil
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	a, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{"port": cfg.Port, "env": cfg.Env}).Info("traceability API starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-c.Context.Done():
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func sqlTarget(cfg config.Config) (string, string, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return storage.Postgres, cfg.DatabaseURL, nil
	case config.DriverSQLite:
		return storage.SQLite, cfg.SQLitePath, nil
	default:
		return "", "", fmt.Errorf("storage driver %q has no schema", cfg.StorageDriver)
	}
}

func migrateUp(*cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	driver, dsn, err := sqlTarget(cfg)
	if err != nil {
		return err
	}
	if err := storage.Migrate(driver, dsn); err != nil {
		return err
	}
	logger.WithField("driver", driver).Info("migrations applied")
	return nil
}

func migrateDown(*cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	driver, dsn, err := sqlTarget(cfg)
	if err != nil {
		return err
	}
	if err := storage.Rollback(driver, dsn); err != nil {
		return err
	}
	logger.WithField("driver", driver).Info("migrations reverted")
	return nil
}

func exportSnapshot(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	a, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	exporter, err := a.Exporter(c.Context)
	if err != nil {
		return err
	}
	location, err := exporter.Export(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, location)
	return nil
}

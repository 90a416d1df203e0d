// Package storage opens the SQL database behind the repositories and keeps
// its schema current.
package storage

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// migration target
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"   // sqlite:// migration target
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Drivers accepted by Open and Migrate.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

//go:embed migrations
var migrations embed.FS

func init() {
	// sqlx knows "sqlite3" but not the modernc driver name.
	sqlx.BindDriver(SQLite, sqlx.QUESTION)
}

// Open connects to the database. For sqlite, dsn is a file path; the pool is
// limited to one connection so writers never contend for the file lock.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case Postgres:
		db, err := sqlx.ConnectContext(ctx, Postgres, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres")
		}
		return db, nil
	case SQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		db, err := sqlx.ConnectContext(ctx, SQLite, dsn+"?_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// Migrate applies every pending up migration for the driver.
func Migrate(driver, dsn string) error {
	m, err := newMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// Rollback reverts every applied migration.
func Rollback(driver, dsn string) error {
	m, err := newMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "revert migrations")
	}
	return nil
}

func newMigrator(driver, dsn string) (*migrate.Migrate, error) {
	var url string
	switch driver {
	case Postgres:
		url = dsn
	case SQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		url = "sqlite://" + dsn
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	src, err := iofs.New(migrations, "migrations/"+driver)
	if err != nil {
		return nil, errors.Wrap(err, "load migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, errors.Wrap(err, "init migrator")
	}
	return m, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, "create database dir")
	}
	return nil
}

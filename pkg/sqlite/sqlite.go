// Package sqlite opens and migrates file-backed SQLite databases through the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Path extracts the database file path from a "sqlite://" or "file:" DSN.
// Query parameters are dropped.
func Path(dsn string) (string, error) {
	const op = "sqlite.Path"

	var path string
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		path = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "file:"):
		path = strings.TrimPrefix(dsn, "file:")
	default:
		return "", fmt.Errorf("%s: unsupported dsn scheme", op)
	}

	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "", fmt.Errorf("%s: empty database path", op)
	}

	return path, nil
}

func formatDSN(path string) string {
	// See https://pkg.go.dev/modernc.org/sqlite#Driver.Open for the parameters.
	params := url.Values{}
	params.Set("mode", "rwc")
	params.Set("_txlock", "immediate")
	params.Set("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_pragma", "busy_timeout(5000)")

	return "file:" + path + "?" + params.Encode()
}

// Open opens the SQLite database file named by dsn, creating it if needed.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	const op = "sqlite.Open"

	path, err := Path(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := sql.Open(driverName, formatDSN(path))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return db, nil
}

// RunMigrations applies the migrations found in dir of fsys to the SQLite
// database named by dsn. An up-to-date schema is not an error.
func RunMigrations(fsys fs.FS, dir, dsn string) error {
	const op = "sqlite.RunMigrations"

	path, err := Path(dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("%s: failed to open migrations source: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return nil
}

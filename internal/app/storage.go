package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vadimbarashkov/shorturls/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shorturls/internal/adapter/repository/sqlite"
	"github.com/vadimbarashkov/shorturls/internal/config"
	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/migrations"
	pgpkg "github.com/vadimbarashkov/shorturls/pkg/postgres"
	sqlitepkg "github.com/vadimbarashkov/shorturls/pkg/sqlite"
)

type urlRepository interface {
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveWithClicks(ctx context.Context, shortCode string) (*entity.URL, error)
	RecordClick(ctx context.Context, urlID int64, click entity.Click) error
}

// openRepository migrates the configured database and returns the matching
// repository together with the connection to close on shutdown.
func openRepository(ctx context.Context, cfg config.Database) (urlRepository, io.Closer, error) {
	const op = "app.openRepository"

	driver, err := cfg.Driver()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	switch driver {
	case config.DriverPostgres:
		if err := pgpkg.RunMigrations(migrations.Postgres, "postgres", cfg.URL); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		db, err := pgpkg.Open(
			ctx,
			cfg.URL,
			pgpkg.WithConnMaxIdleTime(cfg.ConnMaxIdleTime),
			pgpkg.WithConnMaxLifetime(cfg.ConnMaxLifetime),
			pgpkg.WithMaxIdleConns(cfg.MaxIdleConns),
			pgpkg.WithMaxOpenConns(cfg.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		return postgres.NewURLRepository(db), db, nil

	default:
		if err := sqlitepkg.RunMigrations(migrations.SQLite, "sqlite", cfg.URL); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		db, err := sqlitepkg.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		return sqlite.NewURLRepository(db), db, nil
	}
}

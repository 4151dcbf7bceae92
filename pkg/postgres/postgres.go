package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const driverName = "pgx"

const (
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnMaxLifetime = 30 * time.Minute
	defaultMaxIdleConns    = 5
	defaultMaxOpenConns    = 25
)

type poolConfig struct {
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
	maxIdleConns    int
	maxOpenConns    int
}

type Option func(*poolConfig)

func WithConnMaxIdleTime(d time.Duration) Option {
	return func(c *poolConfig) {
		if d > 0 {
			c.connMaxIdleTime = d
		}
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *poolConfig) {
		if d > 0 {
			c.connMaxLifetime = d
		}
	}
}

func WithMaxIdleConns(n int) Option {
	return func(c *poolConfig) {
		if n > 0 {
			c.maxIdleConns = n
		}
	}
}

func WithMaxOpenConns(n int) Option {
	return func(c *poolConfig) {
		if n > 0 {
			c.maxOpenConns = n
		}
	}
}

// Open connects to the PostgreSQL database behind dsn and verifies the
// connection. Zero-valued options keep the pool defaults.
func Open(ctx context.Context, dsn string, opts ...Option) (*sqlx.DB, error) {
	const op = "postgres.Open"

	cfg := poolConfig{
		connMaxIdleTime: defaultConnMaxIdleTime,
		connMaxLifetime: defaultConnMaxLifetime,
		maxIdleConns:    defaultMaxIdleConns,
		maxOpenConns:    defaultMaxOpenConns,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetMaxOpenConns(cfg.maxOpenConns)

	return db, nil
}

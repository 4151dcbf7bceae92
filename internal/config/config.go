package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrUnsupportedDriver  = errors.New("unsupported database url scheme")
)

type Config struct {
	Env             string `yaml:"env"`
	ShortCodeLength int    `yaml:"short_code_length"`
	DefaultValidity int    `yaml:"default_validity"`
	HTTPServer      `yaml:"http_server"`
	Database        `yaml:"database"`
	Log             `yaml:"log"`
}

type HTTPServer struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
}

var defaultHTTPServer = HTTPServer{
	Port:            3000,
	ReadTimeout:     5 * time.Second,
	WriteTimeout:    10 * time.Second,
	IdleTimeout:     time.Minute,
	ShutdownTimeout: 10 * time.Second,
	MaxHeaderBytes:  1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Database struct {
	URL             string        `yaml:"url"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultDatabase = Database{
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

// Driver picks the storage backend from the scheme of the database URL.
func (d *Database) Driver() (string, error) {
	switch {
	case strings.HasPrefix(d.URL, "postgres://"), strings.HasPrefix(d.URL, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(d.URL, "sqlite://"), strings.HasPrefix(d.URL, "file:"):
		return DriverSQLite, nil
	default:
		return "", ErrUnsupportedDriver
	}
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	BufferSize int    `yaml:"buffer_size"`
}

var defaultLog = Log{
	Level:      "info",
	MaxSizeMB:  100,
	MaxBackups: 3,
	MaxAgeDays: 28,
	BufferSize: 1000,
}

func (l *Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}

// Load reads the YAML file at path over the defaults, applies the
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.Database.URL = v
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.HTTPServer.Port = port
	}

	if v, ok := lookup("ENV"); ok && v != "" {
		cfg.Env = v
	}

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}

	if v, ok := lookup("LOG_FILE"); ok {
		cfg.Log.File = v
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}

	if _, err := c.Database.Driver(); err != nil {
		return err
	}

	if c.HTTPServer.Port <= 0 || c.HTTPServer.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.HTTPServer.Port)
	}

	if c.ShortCodeLength <= 0 {
		return fmt.Errorf("invalid short code length %d", c.ShortCodeLength)
	}

	if c.DefaultValidity <= 0 {
		return fmt.Errorf("invalid default validity %d", c.DefaultValidity)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.ShortCodeLength = 8
	cfg.DefaultValidity = 30
	cfg.HTTPServer = defaultHTTPServer
	cfg.Database = defaultDatabase
	cfg.Log = defaultLog
}

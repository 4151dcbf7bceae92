package app

import (
	"io"
	"os"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shorturls/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "url-shortener"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the service logger. Records go to stdout, to extra and,
// when a log file is configured, to a size-rotated file. The returned closer
// releases the file.
func NewLogger(cfg *config.Config, extra ...io.Writer) (*httplog.Logger, io.Closer, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	writers := append([]io.Writer{os.Stdout}, extra...)

	var closer io.Closer = nopCloser{}
	if cfg.Log.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, file)
		closer = file
	}

	logger := httplog.NewLogger(serviceName, httplog.Options{
		LogLevel:        level,
		JSON:            cfg.Env != config.EnvDev,
		Concise:         cfg.Env == config.EnvDev,
		RequestHeaders:  cfg.Env != config.EnvDev,
		Tags:            map[string]string{"env": cfg.Env},
		QuietDownRoutes: []string{"/api/ping"},
		QuietDownPeriod: 10 * time.Second,
		Writer:          io.MultiWriter(writers...),
	})

	return logger, closer, nil
}

// Package app wires configuration, logging, storage and the HTTP server
// together and runs the service until its context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/vadimbarashkov/shorturls/internal/config"
	"github.com/vadimbarashkov/shorturls/internal/geo"
	"github.com/vadimbarashkov/shorturls/internal/shortcode"
	"github.com/vadimbarashkov/shorturls/internal/usecase"
	"github.com/vadimbarashkov/shorturls/pkg/ringlog"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shorturls/internal/adapter/delivery/http"
)

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logs := ringlog.New(cfg.Log.BufferSize)

	logger, logCloser, err := NewLogger(cfg, logs)
	if err != nil {
		return fmt.Errorf("%s: failed to create logger: %w", op, err)
	}
	defer logCloser.Close()

	urlRepo, db, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("%s: failed to open database: %w", op, err)
	}
	defer db.Close()

	urlUseCase := usecase.New(
		urlRepo,
		geo.StubLocator{},
		usecase.WithShortCodeLength(cfg.ShortCodeLength),
		usecase.WithDefaultValidity(cfg.DefaultValidity),
	)

	baseURL := shortcode.BaseURL(cfg.HTTPServer.Port)
	router := delivery.NewRouter(logger, urlUseCase, logs, baseURL)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("base_url", baseURL))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/report"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/watch"
)

// NewLogger builds the structured JSON logger and installs it as default.
func NewLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Serve starts the report server with the given options: an initial
// validation pass, an HTTP API over its results, and a corpus watcher that
// revalidates on change.
func Serve(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := NewLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("corpus_root", cfg.Corpus.Root),
		slog.String("registry_path", cfg.Registry.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	pipe, cleanup, err := NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API service and router. Revalidation reuses the serve-mode run
	// options so API-triggered runs match watcher-triggered ones.
	svc := api.NewService(pipe.Store(), func(ctx context.Context) (*report.Report, error) {
		return pipe.Run(ctx, app.run)
	})
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Initial pass so the API is ready with results immediately.
	initial, err := pipe.Run(ctx, app.run)
	if err != nil {
		return fmt.Errorf("initial validation: %w", err)
	}
	svc.SetReport(initial)
	logger.Info("initial validation complete",
		slog.Int("entries", initial.Summary.Entries),
		slog.Int("failed", initial.Summary.Failed),
		slog.Int("errors", initial.Summary.Errors))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Report(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Corpus watcher: each settled burst of changes triggers a full
	// revalidation and pushes the fresh summary to SSE clients.
	g.Go(func() error {
		wt := watch.New(cfg.Corpus.Root, logger)
		wt.ExtraFiles = []string{
			absOrSelf(cfg.Registry.Path),
			absOrSelf(cfg.Secrets.AllowlistPath),
		}
		return wt.Run(gCtx,
			func(kind, path string) { broker.PublishEntryEvent(kind, path) },
			func(paths []string) {
				rep, runErr := svc.Revalidate(gCtx)
				if runErr != nil {
					logger.Error("revalidation failed", slog.String("error", runErr.Error()))
					return
				}
				logger.Info("revalidation complete",
					slog.Int("changed", len(paths)),
					slog.Int("failed", rep.Summary.Failed),
					slog.Int("errors", rep.Summary.Errors))
				broker.PublishRun(rep.Summary)
			})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func absOrSelf(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

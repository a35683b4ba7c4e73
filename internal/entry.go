// Package internal provides the main application initialization and
// runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/tbrandt/othala/internal/api"
	"github.com/tbrandt/othala/internal/index"
	"github.com/tbrandt/othala/internal/mcpserver"
	"github.com/tbrandt/othala/internal/notestore"
	"github.com/tbrandt/othala/internal/service"
	"github.com/tbrandt/othala/internal/sse"
	"github.com/tbrandt/othala/internal/storage"
)

// buildService wires storage, note store, and index into the service
// layer. A vault root that does not exist or is not a directory aborts
// startup; everything past this point is recoverable per call.
func buildService(cfg *Config) (*service.Service, *index.Index, string, error) {
	fs, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("init storage: %w", err)
	}
	notes := notestore.New(fs)
	idx, err := index.Open(notes)
	if err != nil {
		return nil, nil, "", fmt.Errorf("init index: %w", err)
	}
	return service.New(cfg.Vault.Name, notes, idx), idx, fs.Root(), nil
}

// RunMCP starts the stdio tool gateway. Logs go to stderr because stdout
// is the protocol channel.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, idx, _, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	logger.Info("MCP gateway starting",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("vault_name", cfg.Vault.Name))

	return mcpserver.New(svc).ServeStdio()
}

// Run starts serve mode: REST API, SSE events, and the vault watcher.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("vault_name", cfg.Vault.Name),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, idx, vaultRoot, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	broker := sse.NewBroker(2 * time.Second)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch for external edits: they invalidate the index and feed SSE.
	// There is no locking between external editors and the API writer;
	// last write wins and no conflict is reported.
	g.Go(func() error {
		return index.Watch(gCtx, idx, vaultRoot, logger, func(kind, path string) {
			broker.PublishVaultEvent(kind, path)
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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
		broker.Close()

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

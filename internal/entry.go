// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/inksync/internal/api"
	"github.com/starford/inksync/internal/inbox"
	"github.com/starford/inksync/internal/mcpserver"
	"github.com/starford/inksync/internal/metastore"
	"github.com/starford/inksync/internal/render"
	"github.com/starford/inksync/internal/storage"
	"github.com/starford/inksync/internal/syncer"
)

// bootstrap builds the shared runtime pieces every command needs.
func bootstrap(opts []Option) (*Config, *slog.Logger, *metastore.Store, *syncer.Session, func(), error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	var logOut io.Writer = os.Stdout
	if app.logOut != nil {
		logOut = app.logOut
	}
	if cfg.App.LogFile != "" {
		logOut = &lumberjack.Logger{
			Filename:   cfg.App.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
		}
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	for _, dir := range []string{cfg.Vault.Path, cfg.Inbox.Path} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	docs, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	store, err := metastore.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("init metadata store: %w", err)
	}

	renderer, err := render.New(cfg.TemplateOverrides())
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, nil, fmt.Errorf("init renderer: %w", err)
	}

	session := syncer.New(cfg.Sync, docs, store, renderer, logger)
	cleanup := func() { store.Close() }

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("inbox_path", cfg.Inbox.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return cfg, logger, store, session, cleanup, nil
}

// Run starts the long-running service: initial sync, inbox watcher, and
// the HTTP surface, shut down together on signal.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, store, session, cleanup, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	// Initial sync pass over whatever is already in the inbox.
	if _, err := session.SyncDir(ctx, cfg.Inbox.Path); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	handler := api.NewHandler(store, session, cfg.Inbox.Path)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Inbox.Watch {
		g.Go(func() error {
			err := inbox.Watch(gCtx, cfg.Inbox.Path, cfg.Inbox.Debounce(), logger, func() {
				if _, err := session.SyncDir(gCtx, cfg.Inbox.Path); err != nil {
					logger.Warn("watcher sync failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				logger.Warn("inbox watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

// RunSync performs a single batch over the inbox and returns once it is
// flushed; it is the one-shot CLI path.
func RunSync(ctx context.Context, opts ...Option) error {
	cfg, logger, _, session, cleanup, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	batch, err := session.SyncDir(ctx, cfg.Inbox.Path)
	if err != nil {
		return err
	}
	logger.Info("one-shot sync finished",
		slog.Int("total", batch.Total),
		slog.Int("succeeded", batch.Succeeded),
		slog.Int("skipped", batch.Skipped),
		slog.Int("failed", batch.Failed))
	if batch.Failed > 0 {
		return fmt.Errorf("%d of %d notes failed", batch.Failed, batch.Total)
	}
	return nil
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	cfg, _, store, session, cleanup, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := mcpserver.New(store, session, cfg.Inbox.Path)
	return srv.ServeStdio()
}

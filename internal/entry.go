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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mdlforge/internal/api"
	"github.com/starford/mdlforge/internal/catalog"
	"github.com/starford/mdlforge/internal/exportservice"
	"github.com/starford/mdlforge/internal/mcpserver"
	"github.com/starford/mdlforge/internal/sse"
	"github.com/starford/mdlforge/internal/storage"
)

const defaultVersion = "dev"

// runtime bundles the components shared by every command.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	version string
	sources *storage.FS
	outputs *storage.FS
	db      *catalog.DB
	svc     *exportservice.Service
	synced  *catalog.SyncResult
}

func (r *runtime) Close() error {
	return r.db.Close()
}

func setup(opts []Option) (*runtime, error) {
	app := &application{
		version:   defaultVersion,
		logOutput: os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	for _, dir := range []string{cfg.Workspace.Path, cfg.Output.Path} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	sources, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init workspace storage: %w", err)
	}
	outputs, err := storage.NewFS(cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("init output storage: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	res, err := catalog.Sync(db, sources, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := exportservice.NewService(sources, outputs, db, exportservice.Options{
		HeaderTitle:    cfg.Export.HeaderTitle,
		MaxBufferBytes: cfg.Export.MaxBufferBytes,
		Concurrency:    cfg.Export.Concurrency,
	}, logger)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		version: app.version,
		sources: sources,
		outputs: outputs,
		db:      db,
		svc:     svc,
		synced:  res,
	}, nil
}

// Run starts the HTTP server, the workspace watcher and the event stream.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	rt.svc.SetNotifier(broker)

	if cfg.Export.Watch && rt.synced != nil && len(rt.synced.Indexed) > 0 {
		if _, err := rt.svc.ExportAll(ctx, rt.synced.Indexed); err != nil {
			logger.Warn("initial export incomplete", slog.String("error", err.Error()))
		}
	}

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := rt.db.GetChecksum(""); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"catalog unavailable"}`))
			return
		}
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

	g.Go(func() error {
		return catalog.Watch(gCtx, rt.db, rt.sources, rt.sources.Root(), logger, func(kind catalog.ChangeKind, path string) {
			rt.svc.HandleChange(gCtx, kind, path, cfg.Export.Watch)
		})
	})

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
		defer signal.Stop(quit)

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
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been asked to stop, so
// the watcher exits with it.
var errShutdown = errors.New("shutdown")

// Export runs a single batch export of paths, or of the whole workspace when
// paths is empty, and returns the per-source results.
func Export(ctx context.Context, paths []string, opts ...Option) ([]exportservice.Result, error) {
	rt, err := setup(opts)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	results, err := rt.svc.ExportAll(ctx, paths)
	for _, r := range results {
		if r.Error != "" {
			rt.logger.Error("export failed", slog.String("path", r.Path), slog.String("error", r.Error))
			continue
		}
		rt.logger.Info("exported",
			slog.String("path", r.Path),
			slog.String("output", r.Output),
			slog.Int("bytes", r.Bytes))
	}
	return results, err
}

// ServeMCP serves the MCP tool set on stdin/stdout.
func ServeMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("Serving MCP on stdio", slog.String("version", rt.version))
	if err := mcpserver.New(rt.svc, rt.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

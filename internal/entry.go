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

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/journal"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/publish"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/state"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/watch"
)

// ErrPendingChanges is returned by RunStatus when local documents are out
// of step with the published state. The CLI maps it to a non-zero exit.
var ErrPendingChanges = errors.New("pending changes")

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger. Logs go to stderr so stdout
// stays usable for command output and the MCP stdio transport.
func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildEngine wires the content storage, state ledger, store client, and
// publish engine from the configuration.
func buildEngine(app *application, logger *slog.Logger) (storage.Provider, *publish.Engine, error) {
	cfg := app.config

	if err := os.MkdirAll(cfg.Content.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create content dir: %w", err)
	}

	content, err := storage.NewFS(cfg.Content.Dir, cfg.Content.Excludes)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	st, err := state.Load(cfg.State.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}

	lazy := store.NewLazy(func(ctx context.Context) (store.Client, error) {
		if app.client != nil {
			return app.client, nil
		}
		return store.NewXRPC(cfg.Store.Service, cfg.Store.Repo, cfg.Store.Token), nil
	})

	engine := publish.New(content, st, lazy, publish.Config{
		Collection:     cfg.Store.Collection,
		NoteCollection: cfg.Store.NoteCollection,
		Fields:         parser.FieldMap(cfg.Content.Fields),
	}, logger)

	return content, engine, nil
}

// openJournal opens the run-history database, or returns nil when history
// is disabled by configuration.
func openJournal(cfg *Config, logger *slog.Logger) *journal.DB {
	if cfg.Journal.Path == "" {
		return nil
	}
	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		logger.Warn("journal unavailable, history disabled",
			slog.String("path", cfg.Journal.Path),
			slog.String("error", err.Error()))
		return nil
	}
	return db
}

// RunPublish executes one reconciliation run (or reports it with dryRun).
func RunPublish(ctx context.Context, force, dryRun bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config)

	content, engine, err := buildEngine(app, logger)
	if err != nil {
		return err
	}

	var db *journal.DB
	if !dryRun {
		if db = openJournal(app.config, logger); db != nil {
			defer db.Close()
		}
	}
	svc := docservice.NewService(content, engine, db, logger)

	var res *publish.Result
	if dryRun {
		res, err = svc.Plan(ctx, force)
	} else {
		res, err = svc.Publish(ctx, force)
	}
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	printResult(res)
	if res.Summary.Errors > 0 {
		return fmt.Errorf("publish finished with %d errors", res.Summary.Errors)
	}
	return nil
}

// RunStatus reports pending local work without contacting the remote
// store. It returns ErrPendingChanges when anything would be published.
func RunStatus(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config)

	_, engine, err := buildEngine(app, logger)
	if err != nil {
		return err
	}

	plan, err := engine.PlanLocal(false)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	for _, ent := range plan.Entries {
		fmt.Printf("%-7s %-16s %s\n", ent.Action, ent.Reason, ent.Doc.RelPath)
	}
	for _, del := range plan.Deletions {
		fmt.Printf("%-7s %-16s %s\n", "delete", "file-removed", del.Path)
	}
	fmt.Printf("pending %d, deletions %d, skipped %d, drafts %d\n",
		len(plan.Entries), len(plan.Deletions), len(plan.Skipped), len(plan.Drafts))

	if len(plan.Entries) > 0 || len(plan.Deletions) > 0 {
		return ErrPendingChanges
	}
	return nil
}

// RunHistory prints the most recent recorded publish runs.
func RunHistory(ctx context.Context, limit int, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	newLogger(app.config)

	if app.config.Journal.Path == "" {
		return fmt.Errorf("history: journal is disabled in config")
	}
	db, err := journal.Open(app.config.Journal.Path)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer db.Close()

	runs, err := db.Runs(limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  created %d, updated %d, deleted %d, skipped %d, drafts %d, errors %d\n",
			run.StartedAt.Format(time.RFC3339), run.ID,
			run.Created, run.Updated, run.Deleted, run.Skipped, run.Drafts, run.Errors)
	}
	return nil
}

// RunWatch watches the content directory and publishes on change until ctx
// is cancelled.
func RunWatch(ctx context.Context, force bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config)

	content, engine, err := buildEngine(app, logger)
	if err != nil {
		return err
	}
	db := openJournal(app.config, logger)
	if db != nil {
		defer db.Close()
	}
	svc := docservice.NewService(content, engine, db, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trigger := func(runCtx context.Context) {
		res, err := svc.Publish(runCtx, force)
		if err != nil {
			logger.Error("watch publish failed", slog.String("error", err.Error()))
			return
		}
		logger.Info("watch publish finished", slog.String("summary", res.Summary.String()))
	}

	// Publish once on startup so the watcher begins from a clean slate.
	trigger(ctx)

	return watch.Watch(ctx, app.config.Content.Dir, app.config.Content.Debounce, logger, trigger)
}

// RunMCP serves the MCP stdio transport until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config)

	content, engine, err := buildEngine(app, logger)
	if err != nil {
		return err
	}
	db := openJournal(app.config, logger)
	if db != nil {
		defer db.Close()
	}
	svc := docservice.NewService(content, engine, db, logger)

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(content, svc).ServeStdio()
}

// RunServe starts the HTTP API server with the SSE broker and the
// in-process content watcher.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_dir", cfg.Content.Dir),
		slog.String("state_path", cfg.State.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	content, engine, err := buildEngine(app, logger)
	if err != nil {
		return err
	}
	db := openJournal(cfg, logger)
	if db != nil {
		defer db.Close()
	}
	svc := docservice.NewService(content, engine, db, logger)

	// SSE broker, fed by committed engine changes.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	engine.OnEvent(broker.PublishDocEvent)

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Content.Dir)

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Cover images referenced by rendered previews.
	r.Get("/assets/*", api.NewAssetHandler(cfg.Content.Dir).ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Content watcher: publish on change, broker events flow via OnEvent.
	g.Go(func() error {
		trigger := func(runCtx context.Context) {
			res, err := svc.Publish(runCtx, false)
			if err != nil {
				logger.Error("watch publish failed", slog.String("error", err.Error()))
				return
			}
			logger.Info("watch publish finished", slog.String("summary", res.Summary.String()))
		}
		return watch.Watch(gCtx, cfg.Content.Dir, cfg.Content.Debounce, logger, trigger)
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

func printResult(res *publish.Result) {
	for _, a := range res.Actions {
		line := fmt.Sprintf("%-7s %-16s %s", a.Action, a.Reason, a.Path)
		if a.URI != "" {
			line += "  " + a.URI
		}
		if a.Error != "" {
			line += "  ERROR: " + a.Error
		}
		fmt.Println(line)
	}
	prefix := ""
	if res.DryRun {
		prefix = "dry run: "
	}
	fmt.Println(prefix + res.Summary.String())
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/mailforge/mailforge/internal/adapter/fsm"
	handler "github.com/mailforge/mailforge/internal/adapter/http"
	"github.com/mailforge/mailforge/internal/adapter/notify"
	"github.com/mailforge/mailforge/internal/adapter/otel"
	riveradapter "github.com/mailforge/mailforge/internal/adapter/river"
	"github.com/mailforge/mailforge/internal/adapter/sqlite"
	"github.com/mailforge/mailforge/internal/app"
	"github.com/mailforge/mailforge/internal/bulk"
	"github.com/mailforge/mailforge/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("mailforge: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	riverClient, err := riveradapter.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("river setup: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			slog.Error("river stop", "error", err)
		}
	}()

	tracedRepo := otel.NewTracingRepository(repo)
	publisher := otel.NewTracingPublisher(riveradapter.NewPublisher(riverClient))
	validator := fsm.New()

	// --- Application ---
	svc := app.NewTenantService(tracedRepo, publisher, validator)
	runner := otel.NewTracingRunner(app.NewProvisionService(tracedRepo, publisher, validator))

	registry, err := bulk.DefaultRegistry(runner)
	if err != nil {
		return fmt.Errorf("operation registry: %w", err)
	}
	orch := bulk.New(registry, notify.New(slog.Default()), bulk.Options{
		TickInterval: cfg.BulkTickInterval,
		HoldDelay:    cfg.BulkHoldDelay,
	})

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("mailforge", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("mailforge", "0.1.0"))
	handler.Register(api, svc, orch, registry)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mailforge listening", "port", cfg.Port)
		slog.Info("API docs", "url", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

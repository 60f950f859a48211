// Package main is the entry point for the book catalog server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookcatalog/internal/cache"
	"bookcatalog/internal/catalog"
	"bookcatalog/internal/config"
	"bookcatalog/internal/database"
	"bookcatalog/internal/handlers"
	"bookcatalog/internal/jobs"
	"bookcatalog/internal/middleware"
	"bookcatalog/internal/router"
	"bookcatalog/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	if cfg.IsDev() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"cache", cfg.CacheEnabled,
		"lock_timeout", cfg.TreeLockTimeout,
	)

	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run pending migrations.
	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed the root category (no-op if the tree is not empty).
	if cfg.IsDev() {
		if err := database.Seed(ctx, pool); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Initialize data stores.
	bookStore := store.NewBookStore(pool)
	categoryStore := store.NewCategoryStore(pool, bookStore, cfg.TreeLockTimeout)
	subtreeQuery := store.NewSubtreeQuery(pool, categoryStore, bookStore)
	mutationLog := store.NewMutationLogStore(pool)

	// Connect to Valkey for the book listing cache (optional).
	var pages catalog.PageCache
	if cfg.CacheEnabled {
		valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()
		pages = cache.NewBookPageCache(valkeyClient, cfg.CacheTTL)
	} else {
		slog.Warn("book listing cache disabled")
	}

	svc := catalog.New(categoryStore, bookStore, subtreeQuery, mutationLog, pages)

	// Periodic tree integrity audit.
	if cfg.TreeAuditInterval > 0 {
		auditor, err := jobs.NewAuditor(svc, cfg.TreeAuditInterval)
		if err != nil {
			slog.Error("failed to create tree auditor", "error", err)
			os.Exit(1)
		}
		auditor.Start()
		defer func() {
			if err := auditor.Stop(); err != nil {
				slog.Error("failed to stop tree auditor", "error", err)
			}
		}()
	} else {
		slog.Warn("tree integrity audit disabled")
	}

	// Per-client write limiting on the API.
	var limiter *middleware.WriteLimiter
	if cfg.WriteRateLimit > 0 {
		limiter = middleware.NewWriteLimiter(cfg.WriteRateLimit, time.Minute)
		defer limiter.Stop()
	}

	// Set up the Chi router with all middleware and routes.
	r := router.New(handlers.NewCategories(svc), handlers.NewBooks(svc), limiter)

	// WriteTimeout leaves room for a mutation waiting out the lock timeout.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.TreeLockTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

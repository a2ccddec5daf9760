/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fleet engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load config.yaml
  2. Build the logger
  3. Open the SQLite mirror
  4. Start the upstream sync scheduler (when an upstream is configured)
  5. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -config  Path to config.yaml (optional; defaults apply without it)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sync scheduler (waits for a running sync)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run against a backend, syncing every five minutes
  ./server -config=./config.yaml

  # Run with in-memory database and no upstream
  ./server -db=":memory:"

ENVIRONMENT:
  FLEET_UPSTREAM_TOKEN  Bearer token for the upstream backend

SEE ALSO:
  - config/config.go: Configuration file format
  - api/server.go: Router configuration
  - api/scheduler.go: Upstream sync
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/fleet-engine/api"
	"github.com/warp/fleet-engine/config"
	"github.com/warp/fleet-engine/obs"
	"github.com/warp/fleet-engine/source"
	"github.com/warp/fleet-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to config.yaml")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := obs.NewLogger(cfg.Log.Env, cfg.Log.Level)

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to initialize database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(source.NewLoader(store, logger), logger)
	handler.Runs = store
	handler.Mirror = store
	handler.Blocking = cfg.Blocking()
	handler.Countable = cfg.Countable()

	// Upstream sync
	if cfg.SyncEnabled() {
		timeout, _ := cfg.UpstreamTimeout()
		upstream := source.NewHTTPClient(cfg.Upstream.BaseURL, cfg.Upstream.Token, timeout)
		scheduler, err := api.NewSyncScheduler(upstream, store, cfg.Sync.Schedule, logger)
		if err != nil {
			logger.Error("failed to create sync scheduler", "schedule", cfg.Sync.Schedule, "error", err)
			os.Exit(1)
		}
		handler.Sync = scheduler
		scheduler.Start()
		defer scheduler.Stop()

		if cfg.Sync.OnStart {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), scheduler.Timeout)
				defer cancel()
				if _, err := scheduler.RunNow(ctx); err != nil {
					logger.Warn("initial sync skipped", "error", err)
				}
			}()
		}
	} else {
		logger.Info("no upstream configured, serving the mirror as is")
	}

	// Create router
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins...)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.Database.Path, "sync", cfg.SyncEnabled())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

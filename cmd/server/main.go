// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package main is the entry point for the Genoscope query server.
//
// The server loads the evidence tables produced by genoscope-pipeline into
// an embedded DuckDB store and serves them over a read-only REST API:
// ranked candidate browsing with filtering and pagination, per-gene evidence
// detail, dataset statistics, and a toy risk-score endpoint.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Database: embedded DuckDB loaded from the pipeline outputs directory
//  3. Authentication: JWT or no-auth mode
//  4. HTTP API: Chi router with response caching and Prometheus metrics
//  5. Supervisor tree: outputs watcher and HTTP server under Suture
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults.
//
// For JWT authentication:
//   - SECURITY_JWT_SECRET: 32+ character secret for token signing
//   - SECURITY_ADMIN_USERNAME: admin username
//   - SECURITY_ADMIN_PASSWORD_HASH: bcrypt hash of the admin password
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests to complete,
// then closes the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/genoscope/internal/api"
	"github.com/tomtom215/genoscope/internal/auth"
	"github.com/tomtom215/genoscope/internal/cache"
	"github.com/tomtom215/genoscope/internal/config"
	"github.com/tomtom215/genoscope/internal/database"
	"github.com/tomtom215/genoscope/internal/logging"
	"github.com/tomtom215/genoscope/internal/supervisor"
	"github.com/tomtom215/genoscope/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger for config errors (config not yet available).
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("outputs_dir", cfg.Paths.OutputsDir).
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Genoscope query server")

	db, err := database.New(cfg.Database, cfg.Paths.OutputsDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize evidence store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing evidence store")
		}
	}()
	logging.Info().
		Time("last_reloaded_at", db.LastReloadedAt()).
		Msg("Evidence store loaded")

	var jwtManager *auth.JWTManager
	var credentials *auth.CredentialStore
	switch cfg.Security.AuthMode {
	case "jwt":
		jwtManager, err = auth.NewJWTManager(cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		credentials, err = auth.NewCredentialStore(cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize credential store")
		}
		logging.Info().Msg("JWT authentication enabled")
	case "none":
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  The admin reload endpoint is publicly accessible!")
		logging.Warn().Msg("  This mode should ONLY be used for:")
		logging.Warn().Msg("    - Local development")
		logging.Warn().Msg("    - Completely isolated private networks")
		logging.Warn().Msg("    - CI/CD testing environments")
		logging.Warn().Msg("============================================================")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (SECURITY_RATE_LIMIT_DISABLED=true)")
	}

	// TTL matches the Cache-Control max-age the API advertises.
	responseCache := cache.New(time.Minute)

	handler := api.NewHandler(db, responseCache, cfg, jwtManager, credentials)
	router := api.NewRouter(handler, cfg, jwtManager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sutureslog wants an slog.Logger; the adapter bridges to zerolog.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Server.ReloadInterval > 0 {
		watcher := services.NewWatcherService(
			cfg.Paths.OutputsDir, cfg.Server.ReloadInterval, db, responseCache, logging.Logger())
		tree.AddDataService(watcher)
		logging.Info().
			Dur("interval", cfg.Server.ReloadInterval).
			Msg("Outputs watcher added to supervisor tree")
	} else {
		logging.Info().Msg("Outputs watcher disabled (SERVER_RELOAD_INTERVAL=0)")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Server stopped gracefully")
}

// Callboard - Voice Assistant Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callboard

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

	"github.com/tomtom215/callboard/internal/analytics"
	"github.com/tomtom215/callboard/internal/api"
	"github.com/tomtom215/callboard/internal/auth"
	"github.com/tomtom215/callboard/internal/config"
	"github.com/tomtom215/callboard/internal/database"
	"github.com/tomtom215/callboard/internal/logging"
	"github.com/tomtom215/callboard/internal/supervisor"
	"github.com/tomtom215/callboard/internal/supervisor/services"
	"github.com/tomtom215/callboard/internal/sync"
	"github.com/tomtom215/callboard/internal/vapi"
)

const httpShutdownTimeout = 10 * time.Second

//nolint:gocyclo // sequential startup
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("db_driver", cfg.Database.Driver).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("cache_backend", cfg.Analytics.CacheBackend).
		Bool("scheduled_sync", cfg.Sync.ScheduleEnabled).
		Msg("Starting Callboard")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS")
	}
	if cfg.Security.CronSecret == "" {
		logging.Warn().Msg("CRON_SECRET is not set; POST /api/cron/call-history is open")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("driver", db.Driver()).Msg("Database initialized")

	analyticsCache, err := openAnalyticsCache(&cfg.Analytics)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open analytics cache")
	}
	defer func() {
		if err := analyticsCache.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analytics cache")
		}
	}()

	remote := vapi.NewCircuitBreakerClient(&cfg.Vapi)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.Vapi.Timeout)
	if err := remote.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("Voice platform not reachable at startup; platform calls may fail until it is")
	} else {
		logging.Info().Msg("Connected to voice platform")
	}
	pingCancel()

	analyticsService := analytics.NewService(remote, db, analyticsCache, &cfg.Analytics)
	synchronizer := sync.NewSynchronizer(remote, db, &cfg.Sync)
	syncManager := sync.NewManager(synchronizer, &cfg.Sync)

	authMiddleware, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	handler := api.NewHandler(api.HandlerDeps{
		Store:           db,
		Remote:          remote,
		Analytics:       analyticsService,
		Syncer:          synchronizer,
		Cron:            syncManager,
		Breaker:         remote,
		Cache:           analyticsCache,
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
	})
	chiMiddleware := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})
	router := api.NewRouter(handler, authMiddleware, chiMiddleware)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		// Sync requests fetch one transcript per call and can outlast the
		// read timeout.
		WriteTimeout: 2 * cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddSyncService(services.NewSyncService(syncManager))
	tree.AddAPIService(services.NewHTTPServerService(server, httpShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Callboard stopped")
}

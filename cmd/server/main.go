// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

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

	"github.com/tomtom215/campusmatch/internal/api"
	"github.com/tomtom215/campusmatch/internal/app"
	"github.com/tomtom215/campusmatch/internal/config"
	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/supervisor"
	"github.com/tomtom215/campusmatch/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("CampusMatch server failed")
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(cfg.LoggerConfig())

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("embedding_provider", cfg.Embedding.Provider).
		Bool("server_enabled", cfg.Server.Enabled).
		Msg("Starting CampusMatch with supervisor tree")

	logger := logging.Logger()
	components, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing components")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// === DATA LAYER ===
	tree.AddDataService(services.NewReindexService(components.Engine, services.ReindexConfig{
		OnStartup: cfg.Reindex.OnStartup,
		Interval:  cfg.Reindex.Interval,
		Timeout:   cfg.Reindex.Timeout,
	}, logging.WithComponent("reindex")))

	if components.Store != nil && cfg.Embedding.StoreGCInterval > 0 {
		tree.AddDataService(services.NewStoreGCService(components.Store, cfg.Embedding.StoreGCInterval, logging.WithComponent("vector-store")))
	}

	// === API LAYER ===
	if cfg.Server.Enabled {
		handler := api.NewHandler(components.Engine, components.DB, api.HandlerConfig{
			ReindexTimeout:    cfg.Reindex.Timeout,
			RateLimitRequests: cfg.Server.RateLimitRequests,
			RateLimitWindow:   cfg.Server.RateLimitWindow,
		}, logging.WithComponent("api"))

		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           api.NewRouter(handler),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	} else {
		logging.Info().Msg("Ops HTTP server disabled (HTTP_ENABLED=false)")
	}

	// === START SUPERVISOR TREE ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel receives exactly one value: the result of the root Serve.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("CampusMatch stopped gracefully")
	return nil
}

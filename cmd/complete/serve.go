// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComplete/pkg/ux"
	"github.com/AleutianAI/AleutianComplete/services/complete"
	"github.com/AleutianAI/AleutianComplete/services/complete/completer"
	"github.com/AleutianAI/AleutianComplete/services/complete/snapshot"
	"github.com/AleutianAI/AleutianComplete/services/complete/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the completion HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd, debug)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable gin debug mode and request logging")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command, debug bool) error {
	logger := a.slog()
	cfg := a.cfg

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	store := snapshot.NewStore(cfg.Snapshots.MaxSnapshots, logger)

	var watcher *snapshot.Watcher
	if cfg.Snapshots.Watch {
		watcher, err = snapshot.NewWatcher(store, cfg.Snapshots.Debounce, logger)
		if err != nil {
			logger.Warn("snapshot watching disabled", slog.String("error", err.Error()))
			watcher = nil
		} else {
			watcher.Start(ctx)
		}
	}

	comp := completer.New(cfg.Search, logger)
	svc := complete.NewService(store, comp, watcher, logger)
	defer svc.Close()

	for _, path := range cfg.Snapshots.Preload {
		if _, err := svc.LoadSnapshot(ctx, path); err != nil {
			logger.Warn("snapshot preload failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := complete.NewRouter(complete.NewHandlers(svc), complete.RouterOptions{
		ServiceName: cfg.Telemetry.ServiceName,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
	})
	if debug {
		router.Use(gin.Logger())
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	printer := ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), ux.DetectMode(os.Stdout))
	printer.Box("Aleutian Complete", fmt.Sprintf("listening on %s\nsnapshots preloaded: %d", cfg.Server.Addr, store.Len()))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting completion server", slog.String("address", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down completion server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

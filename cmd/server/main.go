// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package main is the entry point for the Qualisight core server.
//
// Qualisight's core is the in-process query cache, session management, and
// memory monitoring layer behind the manufacturing-quality dashboard. The
// server initializes components in the following order:
//
//  1. Configuration: koanf v2 layering (defaults, config.yaml, QUALISIGHT_* env)
//  2. Logging: zerolog global logger
//  3. Subsystems: query cache, session manager, memory monitor (explicit
//     instances, injected by reference - no package-level singletons)
//  4. Supervision: suture tree running the memory monitor, the cache and
//     session janitors, and the admin HTTP server
//
// The server handles graceful shutdown on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/qualisight/qualisight/internal/api"
	"github.com/qualisight/qualisight/internal/cache"
	"github.com/qualisight/qualisight/internal/config"
	"github.com/qualisight/qualisight/internal/logging"
	"github.com/qualisight/qualisight/internal/memwatch"
	"github.com/qualisight/qualisight/internal/session"
	"github.com/qualisight/qualisight/internal/supervisor"
	"github.com/qualisight/qualisight/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("Qualisight core starting")

	cacheSvc := cache.NewService(cfg.Cache.MaxEntries)

	sessions := session.NewManager(session.Config{
		MaxConcurrentSessions: cfg.Session.MaxConcurrentSessions,
		SessionTimeout:        cfg.Session.SessionTimeout,
		RememberMeTimeout:     cfg.Session.RememberMeTimeout,
		ActivityTimeout:       cfg.Session.ActivityTimeout,
		RotationInterval:      cfg.Session.RotationInterval,
		RotateOnActivity:      cfg.Session.RotateOnActivity,
		MaxActivities:         cfg.Session.MaxActivities,
	})

	monitor := memwatch.NewMonitor(memwatch.Config{
		SnapshotInterval:       cfg.Memory.SnapshotInterval,
		MaxSnapshots:           cfg.Memory.MaxSnapshots,
		HighUsageThreshold:     cfg.Memory.HighUsageThreshold,
		CriticalUsageThreshold: cfg.Memory.CriticalUsageThreshold,
		RapidGrowthThreshold:   cfg.Memory.RapidGrowthMBPerMin * 1024 * 1024,
		LeakDetectionWindow:    cfg.Memory.LeakDetectionWindow,
		GCPressureThreshold:    cfg.Memory.GCPressureThreshold,
		AllowForcedGC:          cfg.Memory.AllowForcedGC,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.Router(api.NewHandlers(cacheSvc, sessions, monitor)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMaintenanceService(monitor)
	tree.AddMaintenanceService(services.NewJanitor("cache-janitor", cfg.Cache.JanitorInterval, cacheSvc.Cleanup))
	tree.AddMaintenanceService(services.NewJanitor("session-janitor", cfg.Session.JanitorInterval, sessions.Cleanup))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", server.Addr).
		Msg("Supervisor tree starting")

	err = tree.Serve(ctx)
	logging.Info().Msg("Qualisight core stopped")
	return err
}

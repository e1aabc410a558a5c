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
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clide-dev/clide/internal/server"
	"github.com/clide-dev/clide/internal/telemetry"
	"github.com/clide-dev/clide/pkg/composition"
	"github.com/clide-dev/clide/pkg/composition/manifest"
	"github.com/clide-dev/clide/pkg/logging"
)

// catalogHolder publishes the current decorating catalog to the server.
type catalogHolder struct {
	mu      sync.Mutex
	lc      *loadedCatalog
	current atomic.Pointer[composition.DecoratingCatalog]
}

func newCatalogHolder(lc *loadedCatalog) *catalogHolder {
	h := &catalogHolder{lc: lc}
	h.current.Store(lc.decorated)
	return h
}

// Source returns the catalog the next request should use.
func (h *catalogHolder) Source() composition.Catalog {
	return h.current.Load()
}

// onReload installs a fresh decorating view after the manifest reloaded.
// A failed reload keeps serving the previous view.
func (h *catalogHolder) onReload(rulesFile string, logger *logging.Logger) manifest.ReloadHandler {
	return func(file *manifest.FileCatalog, err error) {
		if err != nil {
			logger.Warn("manifest reload failed, keeping the previous catalog",
				"manifest", file.Path(),
				"error", err,
			)
			return
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.lc.redecorate(rulesFile, logger); err != nil {
			logger.Warn("rule reload failed, keeping the previous catalog",
				"rules", rulesFile,
				"error", err,
			)
			return
		}
		h.current.Store(h.lc.decorated)
		logger.Info("catalog reloaded", "manifest", file.Path())
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	lc, err := openConfigured()
	if err != nil {
		return err
	}
	defer lc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	holder := newCatalogHolder(lc)
	if watchFlag {
		w, err := manifest.Watch(ctx, lc.file, holder.onReload(cfg.Rules, logger),
			&manifest.WatchOptions{Debounce: cfg.Watch.Debounce})
		if err != nil {
			return err
		}
		defer w.Stop()
		logger.Info("watching manifest", "manifest", lc.file.Path())
	}

	srv := server.New(server.Config{
		Address:         cfg.Server.Address,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Debug:           debug,
		Metrics:         providers.MetricsHandler,
	}, holder.Source, logger)

	printer.Success("serving " + lc.decorated.DisplayName() + " on http://" + cfg.Server.Address)
	return srv.Run(ctx)
}

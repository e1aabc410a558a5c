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
	"fmt"

	"github.com/clide-dev/clide/pkg/composition"
	"github.com/clide-dev/clide/pkg/composition/manifest"
	"github.com/clide-dev/clide/pkg/composition/rules"
	"github.com/clide-dev/clide/pkg/logging"
	"github.com/clide-dev/clide/pkg/ui"
)

// loadedCatalog is the manifest catalog, the built-in parts and the
// decorating view over both.
type loadedCatalog struct {
	file      *manifest.FileCatalog
	inner     *composition.AggregateCatalog
	decorated *composition.DecoratingCatalog
}

// openCatalog loads the manifest and decorates it with the rule file, if any.
func openCatalog(manifestFile, rulesFile string, shell ui.Shell, logger *logging.Logger) (*loadedCatalog, error) {
	file, err := manifest.Load(manifestFile, manifest.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	builtins, err := composition.NewTypeCatalog("Built-in Parts", ui.Part(shell, logger))
	if err != nil {
		file.Close()
		return nil, err
	}

	lc := &loadedCatalog{
		file:  file,
		inner: composition.NewPrimaryAggregateCatalog(file, builtins),
	}
	if err := lc.redecorate(rulesFile, logger); err != nil {
		lc.inner.Close()
		return nil, err
	}
	return lc, nil
}

// redecorate replaces the decorating view with a fresh one, so the shared
// parts cache is rebuilt from the current manifest and rule file.
func (lc *loadedCatalog) redecorate(rulesFile string, logger *logging.Logger) error {
	decorated := composition.NewDecoratingCatalog(lc.inner, composition.WithLogger(logger))
	if rulesFile != "" {
		rs, err := rules.LoadFile(rulesFile)
		if err != nil {
			return err
		}
		if err := rs.Decorate(decorated); err != nil {
			return err
		}
		logger.Debug("rules applied",
			"rules", rulesFile,
			"part_rules", len(rs.Parts),
			"export_rules", len(rs.Exports),
		)
	}
	lc.decorated = decorated
	return nil
}

// Close closes the manifest and built-in catalogs.
func (lc *loadedCatalog) Close() error {
	return lc.decorated.Close()
}

// partStats counts parts by decorated creation policy.
type partStats struct {
	total, shared, nonShared int
}

func countParts(ctx context.Context, catalog composition.Catalog) ([]*composition.PartDefinition, partStats, error) {
	parts, err := catalog.Parts(ctx)
	if err != nil {
		return nil, partStats{}, err
	}
	stats := partStats{total: len(parts)}
	for _, p := range parts {
		nonShared, err := p.IsNonShared()
		if err != nil {
			return nil, partStats{}, fmt.Errorf("part %s: %w", p.Type, err)
		}
		if nonShared {
			stats.nonShared++
		} else {
			stats.shared++
		}
	}
	return parts, stats, nil
}

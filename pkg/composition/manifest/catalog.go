// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/clide-dev/clide/pkg/composition"
	"github.com/clide-dev/clide/pkg/logging"
)

// FileCatalog is a catalog backed by a manifest file.
//
// The file is read by Load and again by each Reload. A failed Reload keeps
// the previously loaded parts.
//
// Thread Safety: safe for concurrent use.
type FileCatalog struct {
	path      string
	factories map[composition.TypeRef]composition.Factory
	logger    *logging.Logger

	mu     sync.RWMutex
	name   string
	parts  []*composition.PartDefinition
	closed bool
}

// Option configures a FileCatalog.
type Option func(*FileCatalog)

// WithFactory binds a factory to every part of the given type.
func WithFactory(t composition.TypeRef, f composition.Factory) Option {
	return func(c *FileCatalog) { c.factories[t] = f }
}

// WithLogger sets the logger used to report reloads.
func WithLogger(l *logging.Logger) Option {
	return func(c *FileCatalog) { c.logger = l }
}

// Load reads the manifest at path.
func Load(path string, opts ...Option) (*FileCatalog, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	c := &FileCatalog{
		path:      abs,
		factories: make(map[composition.TypeRef]composition.Factory),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the manifest file.
func (c *FileCatalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", c.path, err)
	}
	defs := m.Definitions(c.factories)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return composition.ErrCatalogClosed
	}
	c.name = m.Name
	c.parts = defs

	c.logger.Info("manifest loaded",
		"path", c.path,
		"name", c.displayNameLocked(),
		"parts", len(defs),
	)
	return nil
}

// Parts returns the loaded parts in manifest order.
func (c *FileCatalog) Parts(ctx context.Context) ([]*composition.PartDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, composition.ErrCatalogClosed
	}
	out := make([]*composition.PartDefinition, len(c.parts))
	copy(out, c.parts)
	return out, nil
}

// Path returns the absolute manifest path.
func (c *FileCatalog) Path() string { return c.path }

// DisplayName returns the manifest name, or the file name without its
// extension when the manifest has none.
func (c *FileCatalog) DisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayNameLocked()
}

// displayNameLocked requires c.mu.
func (c *FileCatalog) displayNameLocked() string {
	if c.name != "" {
		return c.name
	}
	base := filepath.Base(c.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Origin returns nil.
func (c *FileCatalog) Origin() composition.Element { return nil }

// Close releases the parts. Later Parts and Reload calls fail with
// composition.ErrCatalogClosed.
func (c *FileCatalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.parts = nil
	return nil
}

var (
	_ composition.Catalog = (*FileCatalog)(nil)
	_ composition.Element = (*FileCatalog)(nil)
)

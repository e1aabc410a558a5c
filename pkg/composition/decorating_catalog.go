// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package composition

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/clide-dev/clide/pkg/logging"
)

const (
	decoratingName = "Decorating Catalog"
	sharedFlightID = "shared"
)

// DecoratingCatalog wraps a Catalog and rewrites the metadata of every part
// and export it returns, without touching the inner catalog.
//
// # Caching
//
// Parts whose decorated creation policy is not NonShared are built once and
// cached for the lifetime of the catalog; later calls return the very same
// *PartDefinition values without invoking any decorator for them. Every other
// part is rebuilt, and its decorators re-run, on each Parts call.
//
// # Ordering and Deduplication
//
// The result lists the cached shared parts first and the rebuilt parts after
// them, each group in inner-catalog order. Only the first definition for a
// given TypeRef survives.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent first calls share a single build of
// the shared cache. Decorators may be invoked concurrently for different
// Parts calls and must synchronize any state of their own.
type DecoratingCatalog struct {
	inner  Catalog
	logger *logging.Logger

	hookMu          sync.RWMutex
	partDecorator   PartDecorator
	exportDecorator ExportDecorator

	flight  singleflight.Group
	cacheMu sync.RWMutex
	shared  *sharedParts
}

// sharedParts is the once-computed result for shared parts.
type sharedParts struct {
	parts []*PartDefinition
	types map[TypeRef]struct{}
}

// Option configures a DecoratingCatalog.
type Option func(*DecoratingCatalog)

// WithPartDecorator sets the initial part decorator.
func WithPartDecorator(d PartDecorator) Option {
	return func(c *DecoratingCatalog) { c.partDecorator = d }
}

// WithExportDecorator sets the initial export decorator.
func WithExportDecorator(d ExportDecorator) Option {
	return func(c *DecoratingCatalog) { c.exportDecorator = d }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *DecoratingCatalog) { c.logger = l }
}

// NewDecoratingCatalog wraps inner. Both decorators default to no-ops.
//
// Construction does no work; decoration happens when Parts is called.
func NewDecoratingCatalog(inner Catalog, opts ...Option) *DecoratingCatalog {
	c := &DecoratingCatalog{inner: inner}
	for _, opt := range opts {
		opt(c)
	}
	if c.partDecorator == nil {
		c.partDecorator = NopPartDecorator
	}
	if c.exportDecorator == nil {
		c.exportDecorator = NopExportDecorator
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	return c
}

// SetPartDecorator replaces the part decorator. nil restores the no-op.
//
// Shared parts already cached keep the metadata they were built with.
func (c *DecoratingCatalog) SetPartDecorator(d PartDecorator) {
	if d == nil {
		d = NopPartDecorator
	}
	c.hookMu.Lock()
	c.partDecorator = d
	c.hookMu.Unlock()
}

// SetExportDecorator replaces the export decorator. nil restores the no-op.
func (c *DecoratingCatalog) SetExportDecorator(d ExportDecorator) {
	if d == nil {
		d = NopExportDecorator
	}
	c.hookMu.Lock()
	c.exportDecorator = d
	c.hookMu.Unlock()
}

func (c *DecoratingCatalog) decorators() (PartDecorator, ExportDecorator) {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.partDecorator, c.exportDecorator
}

// Parts returns the decorated, deduplicated view of the inner catalog.
//
// # Description
//
// On the first successful call every inner part is decorated and classified
// by its decorated creation policy; the shared ones are cached. Each call
// then decorates again every inner part whose type is not in the cache.
//
// # Outputs
//
//   - []*PartDefinition: shared parts first, then the rest.
//   - error: inner catalog failures, decorator errors (returned unchanged
//     inside a wrapper, so errors.Is works) or ErrInvalidCreationPolicy.
//     A failed first call leaves the cache empty. A caller whose ctx ends
//     while the shared parts are being built gets ctx.Err(); the build
//     itself continues for the other callers.
func (c *DecoratingCatalog) Parts(ctx context.Context) (parts []*PartDefinition, err error) {
	ctx, span := startCatalogSpan(ctx, "Parts", c.DisplayName())
	defer func() { endSpan(span, err) }()

	shared, err := c.sharedParts(ctx)
	if err != nil {
		return nil, err
	}

	rest, err := c.buildNonShared(ctx, shared.types)
	if err != nil {
		return nil, err
	}

	parts = distinctByType(shared.parts, rest)
	span.SetAttributes(
		attribute.Int("catalog.shared_parts", len(shared.parts)),
		attribute.Int("catalog.parts", len(parts)),
	)
	recordPartCount(ctx, len(parts))
	return parts, nil
}

// sharedParts returns the cache cell, building it on first use.
func (c *DecoratingCatalog) sharedParts(ctx context.Context) (*sharedParts, error) {
	c.cacheMu.RLock()
	cached := c.shared
	c.cacheMu.RUnlock()
	if cached != nil {
		recordSharedCache(ctx, true)
		return cached, nil
	}

	// The build runs detached from ctx; callers joining the flight must not
	// inherit the cancellation of whichever caller started it.
	buildCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(sharedFlightID, func() (interface{}, error) {
		c.cacheMu.RLock()
		existing := c.shared
		c.cacheMu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		recordSharedCache(buildCtx, false)
		built, err := c.buildShared(buildCtx)
		if err != nil {
			return nil, err
		}

		c.cacheMu.Lock()
		c.shared = built
		c.cacheMu.Unlock()

		c.logger.Debug("shared parts cached",
			"catalog", c.DisplayName(),
			"parts", len(built.parts),
		)
		return built, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sharedParts), nil
	}
}

// buildShared decorates every inner part and keeps the ones that are not NonShared.
func (c *DecoratingCatalog) buildShared(ctx context.Context) (*sharedParts, error) {
	inner, err := c.inner.Parts(ctx)
	if err != nil {
		return nil, fmt.Errorf("inner catalog: %w", err)
	}

	built := &sharedParts{types: make(map[TypeRef]struct{})}
	for _, def := range inner {
		meta, nonShared, err := c.visitPart(ctx, def)
		if err != nil {
			return nil, err
		}
		if nonShared {
			continue
		}
		part, err := c.rebuild(ctx, def, meta)
		if err != nil {
			return nil, err
		}
		built.parts = append(built.parts, part)
		built.types[def.Type] = struct{}{}
	}
	return built, nil
}

// buildNonShared rebuilds every inner part whose type is not cached as shared.
func (c *DecoratingCatalog) buildNonShared(ctx context.Context, sharedTypes map[TypeRef]struct{}) ([]*PartDefinition, error) {
	inner, err := c.inner.Parts(ctx)
	if err != nil {
		return nil, fmt.Errorf("inner catalog: %w", err)
	}

	var out []*PartDefinition
	for _, def := range inner {
		if _, ok := sharedTypes[def.Type]; ok {
			continue
		}
		meta, _, err := c.visitPart(ctx, def)
		if err != nil {
			return nil, err
		}
		part, err := c.rebuild(ctx, def, meta)
		if err != nil {
			return nil, err
		}
		out = append(out, part)
	}
	return out, nil
}

// visitPart runs the part decorator and classifies the decorated metadata.
func (c *DecoratingCatalog) visitPart(ctx context.Context, def *PartDefinition) (Metadata, bool, error) {
	decorate, _ := c.decorators()

	dp := newDecoratedPart(def)
	recordHook(ctx, "part")
	if err := decorate(ctx, dp); err != nil {
		return nil, false, fmt.Errorf("decorate part %s: %w", def.Type, err)
	}
	meta := dp.NewMetadata
	if meta == nil {
		meta = NewMetadata()
	}

	policy, err := creationPolicyOf(meta)
	if err != nil {
		return nil, false, fmt.Errorf("part %s: %w", def.Type, err)
	}
	return meta, policy == NonShared, nil
}

// visitExport runs the export decorator on a fresh copy of the raw export metadata.
func (c *DecoratingCatalog) visitExport(ctx context.Context, def *PartDefinition, export ExportDefinition) (Metadata, error) {
	_, decorate := c.decorators()

	de := newDecoratedExport(def, export)
	recordHook(ctx, "export")
	if err := decorate(ctx, de); err != nil {
		return nil, fmt.Errorf("decorate export %s of %s: %w", export.ContractName, def.Type, err)
	}
	if de.NewMetadata == nil {
		return NewMetadata(), nil
	}
	return de.NewMetadata, nil
}

// rebuild creates the decorated copy of def with part metadata meta.
func (c *DecoratingCatalog) rebuild(ctx context.Context, def *PartDefinition, meta Metadata) (*PartDefinition, error) {
	exports := make([]ExportDefinition, 0, len(def.Exports))
	for _, e := range def.Exports {
		em, err := c.visitExport(ctx, def, e)
		if err != nil {
			return nil, err
		}
		exports = append(exports, ExportDefinition{
			ContractName: e.ContractName,
			Member:       e.Member,
			Metadata:     em,
		})
	}

	var imports []ImportDefinition
	if def.Imports != nil {
		imports = make([]ImportDefinition, len(def.Imports))
		copy(imports, def.Imports)
	}

	return &PartDefinition{
		Type:     def.Type,
		Imports:  imports,
		Exports:  exports,
		Metadata: meta,
		Factory:  def.Factory,
	}, nil
}

// distinctByType concatenates groups keeping the first definition per type.
func distinctByType(groups ...[]*PartDefinition) []*PartDefinition {
	seen := make(map[TypeRef]struct{})
	var out []*PartDefinition
	for _, group := range groups {
		for _, p := range group {
			if _, ok := seen[p.Type]; ok {
				continue
			}
			seen[p.Type] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// DisplayName returns "Decorating Catalog for X" when the inner catalog is
// an Element named X, else "Decorating Catalog".
func (c *DecoratingCatalog) DisplayName() string {
	if e, ok := c.inner.(Element); ok {
		return decoratingName + " for " + e.DisplayName()
	}
	return decoratingName
}

// Origin returns the inner catalog when it is an Element, else nil.
func (c *DecoratingCatalog) Origin() Element {
	if e, ok := c.inner.(Element); ok {
		return e
	}
	return nil
}

// Inner returns the wrapped catalog.
func (c *DecoratingCatalog) Inner() Catalog {
	return c.inner
}

// Close drops the shared cache and closes the inner catalog if it is an
// io.Closer. Repeated calls are as safe as the inner catalog's Close.
func (c *DecoratingCatalog) Close() error {
	c.cacheMu.Lock()
	c.shared = nil
	c.cacheMu.Unlock()

	if closer, ok := c.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var (
	_ Catalog   = (*DecoratingCatalog)(nil)
	_ Element   = (*DecoratingCatalog)(nil)
	_ io.Closer = (*DecoratingCatalog)(nil)
)

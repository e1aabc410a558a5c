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
)

// Catalog is a queryable collection of part definitions.
//
// Implementations must be safe for concurrent use. Callers must treat the
// returned definitions as read-only.
type Catalog interface {
	// Parts returns the catalog's definitions in a stable order.
	Parts(ctx context.Context) ([]*PartDefinition, error)
}

// Element is implemented by catalogs that can describe themselves.
//
// Origin is a single-hop lineage link: the element this one was derived
// from, or nil. Callers must not assume chains longer than one hop.
type Element interface {
	DisplayName() string
	Origin() Element
}

// =============================================================================
// TypeCatalog
// =============================================================================

// TypeCatalog is an in-memory catalog of explicitly added parts.
//
// Thread Safety: safe for concurrent use.
type TypeCatalog struct {
	name string

	mu     sync.RWMutex
	parts  []*PartDefinition
	closed bool
}

// NewTypeCatalog creates a catalog named name holding parts.
//
// Returns ErrInvalidPart if any part fails validation.
func NewTypeCatalog(name string, parts ...*PartDefinition) (*TypeCatalog, error) {
	c := &TypeCatalog{name: name}
	for _, p := range parts {
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends a part to the catalog.
func (c *TypeCatalog) Add(part *PartDefinition) error {
	if err := part.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCatalogClosed
	}
	c.parts = append(c.parts, part)
	return nil
}

// Parts returns a copy of the part list in insertion order.
func (c *TypeCatalog) Parts(ctx context.Context) ([]*PartDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrCatalogClosed
	}
	out := make([]*PartDefinition, len(c.parts))
	copy(out, c.parts)
	return out, nil
}

// DisplayName returns the name given at construction.
func (c *TypeCatalog) DisplayName() string {
	if c.name == "" {
		return "Type Catalog"
	}
	return c.name
}

// Origin returns nil; a TypeCatalog is not derived from anything.
func (c *TypeCatalog) Origin() Element { return nil }

// Close releases the parts. Closing twice is a no-op.
func (c *TypeCatalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.parts = nil
	return nil
}

// =============================================================================
// AggregateCatalog
// =============================================================================

// AggregateCatalog concatenates the parts of several catalogs in order.
type AggregateCatalog struct {
	name     string
	primary  NamedCatalog
	catalogs []Catalog
}

// NamedCatalog is a catalog that is also an Element.
type NamedCatalog interface {
	Catalog
	Element
}

// NewAggregateCatalog creates an aggregate over catalogs.
func NewAggregateCatalog(name string, catalogs ...Catalog) *AggregateCatalog {
	return &AggregateCatalog{name: name, catalogs: catalogs}
}

// NewPrimaryAggregateCatalog creates an aggregate whose first member is
// primary and whose display name is primary's current display name.
func NewPrimaryAggregateCatalog(primary NamedCatalog, others ...Catalog) *AggregateCatalog {
	return &AggregateCatalog{
		primary:  primary,
		catalogs: append([]Catalog{primary}, others...),
	}
}

// Parts returns the concatenated parts; the first failing child aborts.
func (a *AggregateCatalog) Parts(ctx context.Context) ([]*PartDefinition, error) {
	var out []*PartDefinition
	for i, c := range a.catalogs {
		parts, err := c.Parts(ctx)
		if err != nil {
			return nil, fmt.Errorf("aggregate catalog %d: %w", i, err)
		}
		out = append(out, parts...)
	}
	return out, nil
}

// DisplayName returns the primary member's current name, else the name given
// at construction, else "Aggregate Catalog".
func (a *AggregateCatalog) DisplayName() string {
	if a.primary != nil {
		return a.primary.DisplayName()
	}
	if a.name == "" {
		return "Aggregate Catalog"
	}
	return a.name
}

// Origin returns nil.
func (a *AggregateCatalog) Origin() Element { return nil }

// Close closes every child implementing io.Closer and returns the first error.
func (a *AggregateCatalog) Close() error {
	var first error
	for _, c := range a.catalogs {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

var (
	_ Catalog = (*TypeCatalog)(nil)
	_ Element = (*TypeCatalog)(nil)
	_ Catalog = (*AggregateCatalog)(nil)
	_ Element = (*AggregateCatalog)(nil)
)

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

	"github.com/google/uuid"

	"github.com/clide-dev/clide/pkg/commands"
	"github.com/clide-dev/clide/pkg/composition"
	"github.com/clide-dev/clide/pkg/logging"
)

// Export metadata keys read by declared commands and filters.
const (
	keyVisible = "visible"
	keyEnabled = "enabled"
)

var errNotExecutable = errors.New("command is declared in a manifest and has no handler")

// statusOverride forces the status flags present in export metadata.
type statusOverride struct {
	visible, enabled *bool
}

func overrideFrom(meta composition.Metadata) statusOverride {
	var o statusOverride
	if v, ok := meta.GetBool(keyVisible); ok {
		o.visible = &v
	}
	if v, ok := meta.GetBool(keyEnabled); ok {
		o.enabled = &v
	}
	return o
}

func (o statusOverride) apply(status *commands.Status) {
	if o.visible != nil {
		status.Visible = *o.visible
	}
	if o.enabled != nil {
		status.Enabled = *o.enabled
	}
}

// declaredCommand is a command known only from its manifest entry.
type declaredCommand struct{ status statusOverride }

func (c declaredCommand) Execute(context.Context) error { return errNotExecutable }

func (c declaredCommand) QueryStatus(_ context.Context, status *commands.Status) {
	c.status.apply(status)
}

// declaredFilter is a filter known only from its manifest entry.
type declaredFilter struct{ status statusOverride }

func (f declaredFilter) QueryStatus(_ context.Context, _ commands.CommandID, status *commands.Status) {
	f.status.apply(status)
}

// declaredParts gives every factory-less part exporting contract a factory
// that builds an instance from that export's metadata.
type declaredParts struct {
	inner    composition.Catalog
	contract string
	build    func(composition.Metadata) any
}

func (d declaredParts) Parts(ctx context.Context) ([]*composition.PartDefinition, error) {
	parts, err := d.inner.Parts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*composition.PartDefinition, 0, len(parts))
	for _, p := range parts {
		export, ok := p.Export(d.contract)
		if !ok || p.Factory != nil {
			out = append(out, p)
			continue
		}
		inst := d.build(export.Metadata)
		withFactory := *p
		withFactory.Factory = func(context.Context) (any, error) { return inst, nil }
		out = append(out, &withFactory)
	}
	return out, nil
}

// newCommandManager registers the commands and filters exported by catalog.
// A nil pkg registers every package found in the catalog.
func newCommandManager(ctx context.Context, catalog composition.Catalog, pkg uuid.UUID, logger *logging.Logger) (*commands.Manager, error) {
	cmdView := declaredParts{catalog, commands.ContractCommand, func(m composition.Metadata) any {
		return declaredCommand{overrideFrom(m)}
	}}
	filterView := declaredParts{catalog, commands.ContractFilter, func(m composition.Metadata) any {
		return declaredFilter{overrideFrom(m)}
	}}

	packages := []uuid.UUID{pkg}
	if pkg == uuid.Nil {
		var err error
		if packages, err = catalogPackages(ctx, catalog); err != nil {
			return nil, err
		}
	}

	m := commands.NewManager(commands.WithLogger(logger))
	for _, id := range packages {
		if _, err := m.AddCommands(ctx, cmdView, id); err != nil {
			return nil, err
		}
		if _, err := m.AddFilters(ctx, filterView, id); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// catalogPackages lists the package ids of command and filter exports in
// first-seen order.
func catalogPackages(ctx context.Context, catalog composition.Catalog) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, contract := range []string{commands.ContractCommand, commands.ContractFilter} {
		matches, err := composition.Exports(ctx, catalog, contract)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			raw, _ := m.Export.Metadata.GetString(commands.KeyPackageID)
			id, err := uuid.Parse(raw)
			if err != nil {
				if v, ok := m.Export.Metadata[commands.KeyPackageID].(uuid.UUID); ok {
					id = v
				} else {
					return nil, fmt.Errorf("part %s: %w: %s", m.Part.Type, commands.ErrInvalidMetadata, commands.KeyPackageID)
				}
			}
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

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

import "context"

// DecoratedPart is the context handed to a PartDecorator.
//
// NewMetadata starts as a copy of the original part metadata. Whatever it
// holds when the decorator returns becomes the metadata of the rebuilt part.
type DecoratedPart struct {
	// Definition is the original, undecorated definition. Do not modify it.
	Definition *PartDefinition

	// PartType is the declaring type of the part.
	PartType TypeRef

	// NewMetadata is the read/write metadata bag.
	NewMetadata Metadata
}

func newDecoratedPart(def *PartDefinition) *DecoratedPart {
	return &DecoratedPart{
		Definition:  def,
		PartType:    def.Type,
		NewMetadata: def.Metadata.Clone(),
	}
}

// DecoratedExport is the context handed to an ExportDecorator.
//
// NewMetadata starts as a copy of the original export metadata, not of the
// part's decorated metadata.
type DecoratedExport struct {
	// Part is the original part that declares the export.
	Part *PartDefinition

	// Definition is the original export definition.
	Definition ExportDefinition

	// ExportingType is the declaring type of the part providing the export.
	ExportingType TypeRef

	// ExportingMember is the member providing the export, or "" for the type itself.
	ExportingMember string

	// NewMetadata is the read/write metadata bag.
	NewMetadata Metadata
}

func newDecoratedExport(part *PartDefinition, export ExportDefinition) *DecoratedExport {
	return &DecoratedExport{
		Part:            part,
		Definition:      export,
		ExportingType:   part.Type,
		ExportingMember: export.Member,
		NewMetadata:     export.Metadata.Clone(),
	}
}

// PartDecorator mutates the metadata of one part.
//
// Errors abort the enclosing Parts call and are returned to its caller.
type PartDecorator func(ctx context.Context, part *DecoratedPart) error

// ExportDecorator mutates the metadata of one export.
type ExportDecorator func(ctx context.Context, export *DecoratedExport) error

// NopPartDecorator leaves part metadata unchanged.
func NopPartDecorator(context.Context, *DecoratedPart) error { return nil }

// NopExportDecorator leaves export metadata unchanged.
func NopExportDecorator(context.Context, *DecoratedExport) error { return nil }

// ChainPartDecorators runs decorators in order, stopping at the first error.
func ChainPartDecorators(decorators ...PartDecorator) PartDecorator {
	return func(ctx context.Context, part *DecoratedPart) error {
		for _, d := range decorators {
			if d == nil {
				continue
			}
			if err := d(ctx, part); err != nil {
				return err
			}
		}
		return nil
	}
}

// ChainExportDecorators runs decorators in order, stopping at the first error.
func ChainExportDecorators(decorators ...ExportDecorator) ExportDecorator {
	return func(ctx context.Context, export *DecoratedExport) error {
		for _, d := range decorators {
			if d == nil {
				continue
			}
			if err := d(ctx, export); err != nil {
				return err
			}
		}
		return nil
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package composition provides part catalogs and a catalog decorator that
// rewrites part and export metadata on the way out.
//
// A Catalog hands out PartDefinitions: a declaring type, the contracts the
// part imports and exports, and a metadata bag. DecoratingCatalog wraps any
// Catalog and lets a PartDecorator and an ExportDecorator edit copies of
// that metadata before the definitions reach their consumer. The inner
// catalog is never modified.
//
//	inner, _ := composition.NewTypeCatalog("Editor Parts", parts...)
//	catalog := composition.NewDecoratingCatalog(inner,
//	    composition.WithPartDecorator(func(ctx context.Context, p *composition.DecoratedPart) error {
//	        p.NewMetadata.Set(composition.CreationPolicyKey, composition.NonShared)
//	        return nil
//	    }),
//	)
//	defs, err := catalog.Parts(ctx)
package composition

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
	"reflect"
)

// ExportMatch pairs a matching export with the part declaring it.
type ExportMatch struct {
	Part   *PartDefinition
	Export ExportDefinition
}

// Exports returns every export of catalog whose contract is contract, in
// catalog order.
func Exports(ctx context.Context, catalog Catalog, contract string) ([]ExportMatch, error) {
	return ExportsWhere(ctx, catalog, contract, nil)
}

// ExportsWhere is Exports restricted to exports whose metadata satisfies
// pred. A nil pred matches everything.
func ExportsWhere(ctx context.Context, catalog Catalog, contract string, pred func(Metadata) bool) ([]ExportMatch, error) {
	parts, err := catalog.Parts(ctx)
	if err != nil {
		return nil, err
	}

	var out []ExportMatch
	for _, p := range parts {
		for _, e := range p.Exports {
			if e.ContractName != contract {
				continue
			}
			if pred != nil && !pred(e.Metadata) {
				continue
			}
			out = append(out, ExportMatch{Part: p, Export: e})
		}
	}
	return out, nil
}

// MetadataEquals returns a predicate matching metadata whose key equals value.
func MetadataEquals(key string, value any) func(Metadata) bool {
	return func(m Metadata) bool {
		v, ok := m[key]
		return ok && reflect.DeepEqual(v, value)
	}
}

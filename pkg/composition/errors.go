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

import "errors"

var (
	// ErrInvalidPart is returned when a definition is nil or structurally incomplete.
	ErrInvalidPart = errors.New("invalid part definition")

	// ErrCatalogClosed is returned by Parts after the catalog was closed.
	ErrCatalogClosed = errors.New("catalog is closed")

	// ErrInvalidCreationPolicy is returned when the creation policy metadata
	// holds a value that cannot be read as a CreationPolicy.
	ErrInvalidCreationPolicy = errors.New("invalid creation policy")

	// ErrNoFactory is returned by NewInstance for parts without a factory.
	ErrNoFactory = errors.New("part has no factory")
)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package commands

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/clide-dev/clide/pkg/composition"
)

// CommandMetadataFrom reads command metadata from export metadata.
//
// Ids may be uuid.UUID values or their string form, as written in manifests.
func CommandMetadataFrom(meta composition.Metadata) (CommandMetadata, error) {
	pkg, err := uuidValue(meta, KeyPackageID)
	if err != nil {
		return CommandMetadata{}, err
	}
	group, err := uuidValue(meta, KeyGroup)
	if err != nil {
		return CommandMetadata{}, err
	}
	id, err := intValue(meta, KeyID)
	if err != nil {
		return CommandMetadata{}, err
	}
	text, _ := meta.GetString(KeyText)

	return CommandMetadata{PackageID: pkg, Group: group, ID: id, Text: text}, nil
}

// FilterMetadataFrom reads filter metadata from export metadata.
func FilterMetadataFrom(meta composition.Metadata) (FilterMetadata, error) {
	pkg, err := uuidValue(meta, KeyPackageID)
	if err != nil {
		return FilterMetadata{}, err
	}
	fm := FilterMetadata{PackageID: pkg}

	raw, ok := meta[KeyTargets]
	if !ok || raw == nil {
		return fm, nil
	}
	switch v := raw.(type) {
	case []CommandID:
		fm.Targets = append(fm.Targets, v...)
	case []string:
		for _, s := range v {
			id, err := ParseCommandID(s)
			if err != nil {
				return FilterMetadata{}, err
			}
			fm.Targets = append(fm.Targets, id)
		}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return FilterMetadata{}, fmt.Errorf("%w: %s entry has type %T", ErrInvalidMetadata, KeyTargets, item)
			}
			id, err := ParseCommandID(s)
			if err != nil {
				return FilterMetadata{}, err
			}
			fm.Targets = append(fm.Targets, id)
		}
	default:
		return FilterMetadata{}, fmt.Errorf("%w: %s has type %T", ErrInvalidMetadata, KeyTargets, raw)
	}
	return fm, nil
}

// packageMatcher matches export metadata belonging to packageID.
func packageMatcher(packageID uuid.UUID) func(composition.Metadata) bool {
	return func(meta composition.Metadata) bool {
		id, err := uuidValue(meta, KeyPackageID)
		return err == nil && id == packageID
	}
}

func uuidValue(meta composition.Metadata, key string) (uuid.UUID, error) {
	raw, ok := meta[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing %s", ErrInvalidMetadata, key)
	}
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, key, err)
		}
		return id, nil
	default:
		return uuid.Nil, fmt.Errorf("%w: %s has type %T", ErrInvalidMetadata, key, raw)
	}
}

func intValue(meta composition.Metadata, key string) (int, error) {
	raw, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidMetadata, key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidMetadata, key, raw)
	}
}

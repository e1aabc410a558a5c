// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package manifest loads part catalogs from YAML manifest files.
//
// A manifest names a catalog and lists its parts:
//
//	name: Editor Parts
//	parts:
//	  - type: github.com/clide-dev/clide/pkg/ui.Service
//	    metadata:
//	      creation_policy: shared
//	    exports:
//	      - contract: MessageBox
//	        metadata:
//	          channel: dialogs
//	    imports:
//	      - contract: Shell
//	        cardinality: exactly_one
//
// Manifest parts carry no code. Factories are bound per type with
// WithFactory when the catalog is loaded.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/clide-dev/clide/pkg/composition"
)

// MaxManifestSize is the maximum accepted manifest size (4MB).
const MaxManifestSize = 4 * 1024 * 1024

// ErrInvalidManifest is returned when a manifest cannot be parsed or fails validation.
var ErrInvalidManifest = errors.New("invalid manifest")

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("creation_policy", validateCreationPolicy)
}

func validateCreationPolicy(fl validator.FieldLevel) bool {
	_, err := composition.ParseCreationPolicy(fl.Field().String())
	return err == nil
}

// Manifest is the root of a manifest file.
type Manifest struct {
	Name  string     `yaml:"name"`
	Parts []PartSpec `yaml:"parts" validate:"dive"`
}

// PartSpec describes one part.
type PartSpec struct {
	Type     string         `yaml:"type" validate:"required"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
	Imports  []ImportSpec   `yaml:"imports,omitempty" validate:"dive"`
	Exports  []ExportSpec   `yaml:"exports,omitempty" validate:"dive"`
}

// ImportSpec describes one import of a part.
type ImportSpec struct {
	Contract    string         `yaml:"contract" validate:"required"`
	Cardinality string         `yaml:"cardinality,omitempty" validate:"omitempty,oneof=exactly_one zero_or_one zero_or_more"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
}

// ExportSpec describes one export of a part.
type ExportSpec struct {
	Contract string         `yaml:"contract" validate:"required"`
	Member   string         `yaml:"member,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	if len(data) > MaxManifestSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidManifest, len(data), MaxManifestSize)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks field constraints and the creation policy of every part.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	for i, p := range m.Parts {
		raw, ok := p.Metadata[composition.CreationPolicyKey]
		if !ok {
			continue
		}
		s, isString := raw.(string)
		if !isString || validate.Var(s, "creation_policy") != nil {
			return fmt.Errorf("%w: part %d (%s): creation_policy %v", ErrInvalidManifest, i, p.Type, raw)
		}
	}
	return nil
}

// Definitions converts the manifest into part definitions, in file order.
//
// Factories are looked up by type; types without one get no factory.
func (m *Manifest) Definitions(factories map[composition.TypeRef]composition.Factory) []*composition.PartDefinition {
	defs := make([]*composition.PartDefinition, 0, len(m.Parts))
	for _, p := range m.Parts {
		def := &composition.PartDefinition{
			Type:     composition.TypeRef(p.Type),
			Metadata: toMetadata(p.Metadata),
			Factory:  factories[composition.TypeRef(p.Type)],
		}
		for _, imp := range p.Imports {
			cardinality := composition.Cardinality(imp.Cardinality)
			if cardinality == "" {
				cardinality = composition.ExactlyOne
			}
			def.Imports = append(def.Imports, composition.ImportDefinition{
				ContractName: imp.Contract,
				Cardinality:  cardinality,
				Metadata:     toMetadata(imp.Metadata),
			})
		}
		for _, exp := range p.Exports {
			def.Exports = append(def.Exports, composition.ExportDefinition{
				ContractName: exp.Contract,
				Member:       exp.Member,
				Metadata:     toMetadata(exp.Metadata),
			})
		}
		defs = append(defs, def)
	}
	return defs
}

func toMetadata(m map[string]any) composition.Metadata {
	return composition.Metadata(m).Clone()
}

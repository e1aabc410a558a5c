// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules compiles declarative YAML decoration rules into the part and
// export decorators of a composition.DecoratingCatalog.
//
// A rule file looks like:
//
//	parts:
//	  - match: "ui.*"
//	    creation_policy: non_shared
//	    set:
//	      owner: shell
//	exports:
//	  - match: "*"
//	    contract: "Command"
//	    remove: [internal]
//
// Rules apply in file order; a later rule sees the changes made by an
// earlier one. Within a rule, removals happen before sets.
package rules

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/yaml.v3"

	"github.com/clide-dev/clide/pkg/composition"
)

// MaxRulesFileSize is the maximum accepted rule file size (1MB).
const MaxRulesFileSize = 1024 * 1024

// ErrInvalidRuleSet is returned when a rule file cannot be parsed or fails validation.
var ErrInvalidRuleSet = errors.New("invalid rule set")

var rulesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clide_decoration_rules_applied_total",
	Help: "Total decoration rule applications by kind",
}, []string{"kind"})

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("glob", validateGlob)
}

// validateGlob accepts well-formed path.Match patterns.
func validateGlob(fl validator.FieldLevel) bool {
	_, err := path.Match(fl.Field().String(), "")
	return err == nil
}

// RuleSet is the root of a rule file.
type RuleSet struct {
	Parts   []PartRule   `yaml:"parts" validate:"dive"`
	Exports []ExportRule `yaml:"exports" validate:"dive"`
}

// PartRule edits the metadata of parts whose type matches Match.
type PartRule struct {
	// Match is a path.Match pattern. Patterns without a "/" are also tried
	// against the type's short name ("ui.Service").
	Match string `yaml:"match" validate:"required,glob"`

	Set    map[string]any `yaml:"set,omitempty"`
	Remove []string       `yaml:"remove,omitempty"`

	// CreationPolicy, when set, overrides composition.CreationPolicyKey.
	CreationPolicy string `yaml:"creation_policy,omitempty" validate:"omitempty,oneof=any shared non_shared nonshared non-shared"`
}

// ExportRule edits the metadata of exports.
type ExportRule struct {
	// Match selects the exporting part type, as in PartRule.
	Match string `yaml:"match" validate:"required,glob"`

	// Contract is a pattern on the export's contract name; empty matches all.
	Contract string `yaml:"contract,omitempty" validate:"omitempty,glob"`

	Set    map[string]any `yaml:"set,omitempty"`
	Remove []string       `yaml:"remove,omitempty"`
}

// Parse decodes and validates a rule set. Unknown fields are rejected.
func Parse(data []byte) (*RuleSet, error) {
	if len(data) > MaxRulesFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidRuleSet, len(data), MaxRulesFileSize)
	}

	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadFile reads and parses the rule file at path.
func LoadFile(filePath string) (*RuleSet, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("stat rules: %w", err)
	}
	if info.Size() > MaxRulesFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrInvalidRuleSet, filePath, info.Size())
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return rs, nil
}

// Validate checks the rule set.
func (rs *RuleSet) Validate() error {
	if err := validate.Struct(rs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}
	return nil
}

// Compile returns decorators applying rs. The rule set must not be modified
// afterwards.
func (rs *RuleSet) Compile() (composition.PartDecorator, composition.ExportDecorator, error) {
	if err := rs.Validate(); err != nil {
		return nil, nil, err
	}

	policies := make([]*composition.CreationPolicy, len(rs.Parts))
	for i, r := range rs.Parts {
		if r.CreationPolicy == "" {
			continue
		}
		p, err := composition.ParseCreationPolicy(r.CreationPolicy)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: part rule %d: %v", ErrInvalidRuleSet, i, err)
		}
		policies[i] = &p
	}

	parts := func(_ context.Context, part *composition.DecoratedPart) error {
		for i, r := range rs.Parts {
			if !matchType(r.Match, part.PartType) {
				continue
			}
			apply(part.NewMetadata, r.Remove, r.Set)
			if policies[i] != nil {
				part.NewMetadata.Set(composition.CreationPolicyKey, *policies[i])
			}
			rulesApplied.WithLabelValues("part").Inc()
		}
		return nil
	}

	exports := func(_ context.Context, export *composition.DecoratedExport) error {
		for _, r := range rs.Exports {
			if !matchType(r.Match, export.ExportingType) {
				continue
			}
			if r.Contract != "" {
				if ok, _ := path.Match(r.Contract, export.Definition.ContractName); !ok {
					continue
				}
			}
			apply(export.NewMetadata, r.Remove, r.Set)
			rulesApplied.WithLabelValues("export").Inc()
		}
		return nil
	}

	return parts, exports, nil
}

// Decorate installs the compiled rules on catalog.
func (rs *RuleSet) Decorate(catalog *composition.DecoratingCatalog) error {
	parts, exports, err := rs.Compile()
	if err != nil {
		return err
	}
	catalog.SetPartDecorator(parts)
	catalog.SetExportDecorator(exports)
	return nil
}

func apply(meta composition.Metadata, remove []string, set map[string]any) {
	for _, k := range remove {
		meta.Delete(k)
	}
	for k, v := range set {
		meta.Set(k, v)
	}
}

func matchType(pattern string, ref composition.TypeRef) bool {
	if ok, _ := path.Match(pattern, ref.String()); ok {
		return true
	}
	if strings.Contains(pattern, "/") {
		return false
	}
	ok, _ := path.Match(pattern, ref.ShortName())
	return ok
}

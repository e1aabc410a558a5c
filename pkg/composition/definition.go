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
	"reflect"
	"strings"
)

// =============================================================================
// Type Identity
// =============================================================================

// TypeRef identifies the declaring type of a part.
//
// Two definitions with the same TypeRef describe the same component type;
// DecoratingCatalog deduplicates on it. Hosting code should build it with
// TypeOf so refs are package-qualified.
type TypeRef string

// TypeOf returns the package-qualified TypeRef of T.
//
// Pointer types are dereferenced, so TypeOf[*Foo] and TypeOf[Foo] are equal.
//
// Example:
//
//	composition.TypeOf[ui.Service]() // "github.com/clide-dev/clide/pkg/ui.Service"
func TypeOf[T any]() TypeRef {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return TypeRef(t.String())
	}
	return TypeRef(t.PkgPath() + "." + t.Name())
}

// String returns the ref as a plain string.
func (r TypeRef) String() string {
	return string(r)
}

// ShortName returns the ref without its package path.
func (r TypeRef) ShortName() string {
	s := string(r)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// =============================================================================
// Creation Policy
// =============================================================================

// CreationPolicyKey is the part metadata key holding its CreationPolicy.
const CreationPolicyKey = "creation_policy"

// CreationPolicy classifies how instances of a part are created.
type CreationPolicy int

const (
	// Any lets the consumer decide; treated as shared by catalogs.
	Any CreationPolicy = iota

	// Shared parts have one instance per container.
	Shared

	// NonShared parts produce a new instance per request.
	NonShared
)

// String returns the manifest spelling of the policy.
func (p CreationPolicy) String() string {
	switch p {
	case Any:
		return "any"
	case Shared:
		return "shared"
	case NonShared:
		return "non_shared"
	default:
		return fmt.Sprintf("CreationPolicy(%d)", int(p))
	}
}

// ParseCreationPolicy parses the manifest spelling of a policy.
//
// Accepts "any", "shared", "non_shared", "nonshared" and "non-shared",
// case-insensitively. The empty string parses as Any.
func ParseCreationPolicy(s string) (CreationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return Any, nil
	case "shared":
		return Shared, nil
	case "non_shared", "nonshared", "non-shared":
		return NonShared, nil
	default:
		return Any, fmt.Errorf("%w: %q", ErrInvalidCreationPolicy, s)
	}
}

// MarshalText encodes the policy by name.
func (p CreationPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts any spelling ParseCreationPolicy does.
func (p *CreationPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseCreationPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// creationPolicyOf reads the policy stored under CreationPolicyKey.
//
// A missing key is Any. A typed CreationPolicy or a parseable string is
// accepted; any other value type is an ErrInvalidCreationPolicy.
func creationPolicyOf(meta Metadata) (CreationPolicy, error) {
	raw, ok := meta[CreationPolicyKey]
	if !ok || raw == nil {
		return Any, nil
	}
	switch v := raw.(type) {
	case CreationPolicy:
		return v, nil
	case string:
		return ParseCreationPolicy(v)
	default:
		return Any, fmt.Errorf("%w: unexpected %T under %q", ErrInvalidCreationPolicy, raw, CreationPolicyKey)
	}
}

// =============================================================================
// Definitions
// =============================================================================

// Cardinality describes how many exports an import accepts.
type Cardinality string

const (
	ExactlyOne Cardinality = "exactly_one"
	ZeroOrOne  Cardinality = "zero_or_one"
	ZeroOrMore Cardinality = "zero_or_more"
)

// ImportDefinition is a dependency requirement declared by a part.
type ImportDefinition struct {
	ContractName string
	Cardinality  Cardinality
	Metadata     Metadata
}

// ExportDefinition is one capability offered by a part.
type ExportDefinition struct {
	// ContractName names the capability consumers ask for.
	ContractName string

	// Member is the exporting member, or "" when the part type itself is exported.
	Member string

	Metadata Metadata
}

// Factory creates an instance of a part.
type Factory func(ctx context.Context) (any, error)

// PartDefinition describes a discoverable component type.
//
// Definitions handed out by catalogs must be treated as immutable. Decoration
// never changes a definition in place; it builds a new one.
type PartDefinition struct {
	Type     TypeRef
	Imports  []ImportDefinition
	Exports  []ExportDefinition
	Metadata Metadata

	// Factory is optional; parts loaded from manifests have none.
	Factory Factory
}

// CreationPolicy returns the policy recorded in the part's metadata.
func (p *PartDefinition) CreationPolicy() (CreationPolicy, error) {
	return creationPolicyOf(p.Metadata)
}

// IsNonShared reports whether the part's metadata marks it NonShared.
func (p *PartDefinition) IsNonShared() (bool, error) {
	policy, err := p.CreationPolicy()
	if err != nil {
		return false, err
	}
	return policy == NonShared, nil
}

// Export returns the first export with the given contract.
func (p *PartDefinition) Export(contract string) (ExportDefinition, bool) {
	for _, e := range p.Exports {
		if e.ContractName == contract {
			return e, true
		}
	}
	return ExportDefinition{}, false
}

// NewInstance invokes the part's factory.
//
// Returns ErrNoFactory when the part has none.
func (p *PartDefinition) NewInstance(ctx context.Context) (any, error) {
	if p.Factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoFactory, p.Type)
	}
	return p.Factory(ctx)
}

// validate checks the structural invariants every catalog relies on.
func (p *PartDefinition) validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidPart)
	}
	if strings.TrimSpace(string(p.Type)) == "" {
		return fmt.Errorf("%w: empty type", ErrInvalidPart)
	}
	for i, e := range p.Exports {
		if strings.TrimSpace(e.ContractName) == "" {
			return fmt.Errorf("%w: %s export %d has no contract", ErrInvalidPart, p.Type, i)
		}
	}
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import "github.com/clide-dev/clide/pkg/composition"

// CatalogResponse summarizes the served catalog.
type CatalogResponse struct {
	Name      string `json:"name"`
	Origin    string `json:"origin,omitempty"`
	Parts     int    `json:"parts"`
	Shared    int    `json:"shared"`
	NonShared int    `json:"non_shared"`
}

// PartResponse is one decorated part.
type PartResponse struct {
	Type           string           `json:"type"`
	CreationPolicy string           `json:"creation_policy"`
	Metadata       map[string]any   `json:"metadata"`
	Imports        []ImportResponse `json:"imports,omitempty"`
	Exports        []ExportResponse `json:"exports,omitempty"`
}

// ImportResponse is one import of a part.
type ImportResponse struct {
	Contract    string         `json:"contract"`
	Cardinality string         `json:"cardinality,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ExportResponse is one export of a part.
type ExportResponse struct {
	Contract string         `json:"contract"`
	Member   string         `json:"member,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// ExportMatchResponse is an export together with the part declaring it.
type ExportMatchResponse struct {
	Part     string         `json:"part"`
	Contract string         `json:"contract"`
	Member   string         `json:"member,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// PartsResponse lists parts.
type PartsResponse struct {
	Parts []PartResponse `json:"parts"`
}

// ExportsResponse lists export matches.
type ExportsResponse struct {
	Contract string                `json:"contract"`
	Exports  []ExportMatchResponse `json:"exports"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}

// NewPartResponse converts a definition.
//
// A creation policy that cannot be read is reported as "invalid".
func NewPartResponse(p *composition.PartDefinition) PartResponse {
	policy := "invalid"
	if cp, err := p.CreationPolicy(); err == nil {
		policy = cp.String()
	}

	resp := PartResponse{
		Type:           p.Type.String(),
		CreationPolicy: policy,
		Metadata:       metadataOrEmpty(p.Metadata),
	}
	for _, imp := range p.Imports {
		resp.Imports = append(resp.Imports, ImportResponse{
			Contract:    imp.ContractName,
			Cardinality: string(imp.Cardinality),
			Metadata:    imp.Metadata,
		})
	}
	for _, exp := range p.Exports {
		resp.Exports = append(resp.Exports, ExportResponse{
			Contract: exp.ContractName,
			Member:   exp.Member,
			Metadata: metadataOrEmpty(exp.Metadata),
		})
	}
	return resp
}

// NewExportMatchResponse converts an export match.
func NewExportMatchResponse(m composition.ExportMatch) ExportMatchResponse {
	return ExportMatchResponse{
		Part:     m.Part.Type.String(),
		Contract: m.Export.ContractName,
		Member:   m.Export.Member,
		Metadata: metadataOrEmpty(m.Export.Metadata),
	}
}

func metadataOrEmpty(m composition.Metadata) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

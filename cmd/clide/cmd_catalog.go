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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clide-dev/clide/internal/server"
	"github.com/clide-dev/clide/pkg/composition"
	"github.com/clide-dev/clide/pkg/logging"
	"github.com/clide-dev/clide/pkg/ux"
)

func openConfigured() (*loadedCatalog, error) {
	if err := requireManifest(); err != nil {
		return nil, err
	}
	shell := newTerminalShell(os.Stdin, os.Stdout, printer)
	return openCatalog(cfg.Manifest, cfg.Rules, shell, logger)
}

func runParts(cmd *cobra.Command, args []string) error {
	lc, err := openConfigured()
	if err != nil {
		return err
	}
	defer lc.Close()

	parts, stats, err := countParts(cmd.Context(), lc.decorated)
	if err != nil {
		return err
	}

	if jsonOutput {
		resp := server.PartsResponse{Parts: make([]server.PartResponse, 0, len(parts))}
		for _, p := range parts {
			resp.Parts = append(resp.Parts, server.NewPartResponse(p))
		}
		return writeJSON(resp)
	}

	printer.Title(lc.decorated.DisplayName())
	for _, p := range parts {
		r := server.NewPartResponse(p)
		printer.Item(r.Type, r.CreationPolicy, fmt.Sprintf("%d exports", len(r.Exports)))
		for _, key := range p.Metadata.Keys() {
			if key == composition.CreationPolicyKey {
				continue
			}
			printer.Detail(key, p.Metadata[key])
		}
	}
	printer.Counts(
		ux.Count{Label: "parts", N: stats.total},
		ux.Count{Label: "shared", N: stats.shared},
		ux.Count{Label: "non_shared", N: stats.nonShared},
	)
	return nil
}

func runExports(cmd *cobra.Command, args []string) error {
	contract := args[0]
	pred, err := parseWhere(whereFlags)
	if err != nil {
		return err
	}

	lc, err := openConfigured()
	if err != nil {
		return err
	}
	defer lc.Close()

	matches, err := composition.ExportsWhere(cmd.Context(), lc.decorated, contract, pred)
	if err != nil {
		return err
	}

	if jsonOutput {
		resp := server.ExportsResponse{Contract: contract, Exports: make([]server.ExportMatchResponse, 0, len(matches))}
		for _, m := range matches {
			resp.Exports = append(resp.Exports, server.NewExportMatchResponse(m))
		}
		return writeJSON(resp)
	}

	printer.Title(contract)
	for _, m := range matches {
		details := []string{}
		if m.Export.Member != "" {
			details = append(details, "member="+m.Export.Member)
		}
		printer.Item(m.Part.Type.String(), details...)
		for _, key := range m.Export.Metadata.Keys() {
			printer.Detail(key, m.Export.Metadata[key])
		}
	}
	printer.Counts(ux.Count{Label: "exports", N: len(matches)})
	return nil
}

// parseWhere turns key=value flags into a metadata predicate.
func parseWhere(flags []string) (func(composition.Metadata) bool, error) {
	want := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --where %q: expected key=value", f)
		}
		want[key] = value
	}
	return func(m composition.Metadata) bool {
		for key, value := range want {
			if got, ok := m.GetString(key); !ok || got != value {
				return false
			}
		}
		return true
	}, nil
}

type commandRow struct {
	Command   string `json:"command"`
	PackageID string `json:"package_id"`
	Text      string `json:"text,omitempty"`
	Visible   bool   `json:"visible"`
	Enabled   bool   `json:"enabled"`
}

func runCommands(cmd *cobra.Command, args []string) error {
	var pkg uuid.UUID
	if packageFlag != "" {
		var err error
		if pkg, err = uuid.Parse(packageFlag); err != nil {
			return fmt.Errorf("invalid --package: %w", err)
		}
	}

	lc, err := openConfigured()
	if err != nil {
		return err
	}
	defer lc.Close()

	rows, err := listCommands(cmd.Context(), lc.decorated, pkg, logger)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(rows)
	}
	printer.Title("Commands")
	for _, r := range rows {
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		if !r.Visible {
			state += ",hidden"
		}
		printer.Item(r.Command, r.Text, state)
	}
	printer.Counts(ux.Count{Label: "commands", N: len(rows)})
	return nil
}

// listCommands registers the catalog's commands and filters with a command
// manager, optionally restricted to one package, and resolves each status.
func listCommands(ctx context.Context, catalog composition.Catalog, pkg uuid.UUID, logger *logging.Logger) ([]commandRow, error) {
	m, err := newCommandManager(ctx, catalog, pkg, logger)
	if err != nil {
		return nil, err
	}

	metas := m.Commands()
	rows := make([]commandRow, 0, len(metas))
	for _, meta := range metas {
		status, err := m.QueryStatus(ctx, meta.CommandID())
		if err != nil {
			return nil, err
		}
		rows = append(rows, commandRow{
			Command:   meta.CommandID().String(),
			PackageID: meta.PackageID.String(),
			Text:      status.Text,
			Visible:   status.Visible,
			Enabled:   status.Enabled,
		})
	}
	return rows, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	lc, err := openConfigured()
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer lc.Close()

	_, stats, err := countParts(cmd.Context(), lc.decorated)
	if err != nil {
		printer.Error(err.Error())
		return err
	}

	printer.Success(fmt.Sprintf("%s is valid", lc.file.Path()))
	if cfg.Rules != "" {
		printer.Success(fmt.Sprintf("%s is valid", cfg.Rules))
	}
	printer.Counts(
		ux.Count{Label: "parts", N: stats.total},
		ux.Count{Label: "shared", N: stats.shared},
		ux.Count{Label: "non_shared", N: stats.nonShared},
	)
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clide-dev/clide/pkg/ui"
)

const starterManifest = `name: Editor Parts
parts:
  - type: example.com/editor.Buffer
    metadata:
      creation_policy: non_shared
    exports:
      - contract: editor.buffer
  - type: example.com/editor.Formatter
    imports:
      - contract: editor.buffer
        cardinality: zero_or_more
    exports:
      - contract: editor.formatter
        metadata:
          language: go
`

const starterRules = `parts:
  - match: editor.Formatter
    set:
      owner: editor
exports:
  - match: "*"
    contract: editor.*
    set:
      visible: true
`

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	svc := ui.NewService(newTerminalShell(os.Stdin, os.Stdout, printer), logger)
	files := []struct{ name, body string }{
		{"manifest.yaml", starterManifest},
		{"rules.yaml", starterRules},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		ok, err := confirmWrite(cmd.Context(), svc, path)
		if err != nil {
			return err
		}
		if !ok {
			printer.Warning("skipped " + path)
			continue
		}
		if err := os.WriteFile(path, []byte(f.body), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		printer.Success("wrote " + path)
	}
	return nil
}

// confirmWrite reports whether path may be written, asking first when it
// already exists.
func confirmWrite(ctx context.Context, svc *ui.Service, path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) || assumeYes {
		return true, nil
	}
	answer, err := svc.Show(ctx, path+" already exists. Overwrite it?",
		ui.WithTitle("clide init"),
		ui.WithButton(ui.ButtonYesNo),
		ui.WithIcon(ui.IconWarning),
		ui.WithDefault(ui.ResultNo),
	)
	if err != nil {
		return false, err
	}
	return answer != nil && *answer, nil
}

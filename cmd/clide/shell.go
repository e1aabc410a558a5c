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
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/clide-dev/clide/pkg/ui"
	"github.com/clide-dev/clide/pkg/ux"
)

// terminalShell shows message boxes on the terminal and reads the answer
// from a line of input.
type terminalShell struct {
	in  *bufio.Reader
	out io.Writer
	p   *ux.Printer
}

func newTerminalShell(in io.Reader, out io.Writer, p *ux.Printer) *terminalShell {
	return &terminalShell{in: bufio.NewReader(in), out: out, p: p}
}

// ShowMessageBox prints the box and prompts until a listed choice is
// entered. An empty line or end of input selects the box default.
func (s *terminalShell) ShowMessageBox(ctx context.Context, box ui.MessageBox) (ui.Result, error) {
	choices := choicesFor(box.Button)
	def := box.Default
	if !containsResult(choices, def) {
		def = choices[0]
	}

	switch box.Icon {
	case ui.IconError:
		s.p.Error(box.Message)
	case ui.IconWarning:
		s.p.Warning(box.Message)
	default:
		s.p.Box(box.Title, box.Message)
	}

	for {
		if err := ctx.Err(); err != nil {
			return ui.ResultNone, err
		}
		fmt.Fprintf(s.out, "%s [%s]: ", promptFor(choices), def)

		line, err := s.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "" {
			if err != nil && err != io.EOF {
				return ui.ResultNone, err
			}
			return def, nil
		}
		for _, c := range choices {
			if answer == c.String() || answer == c.String()[:1] {
				return c, nil
			}
		}
		if err != nil {
			return def, nil
		}
	}
}

func choicesFor(b ui.Button) []ui.Result {
	switch b {
	case ui.ButtonOKCancel:
		return []ui.Result{ui.ResultOK, ui.ResultCancel}
	case ui.ButtonYesNoCancel:
		return []ui.Result{ui.ResultYes, ui.ResultNo, ui.ResultCancel}
	case ui.ButtonYesNo:
		return []ui.Result{ui.ResultYes, ui.ResultNo}
	default:
		return []ui.Result{ui.ResultOK}
	}
}

func promptFor(choices []ui.Result) string {
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = c.String()
	}
	return strings.Join(names, "/")
}

func containsResult(rs []ui.Result, r ui.Result) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

var _ ui.Shell = (*terminalShell)(nil)

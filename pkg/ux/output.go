// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the clide CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette.
var (
	ColorBright = lipgloss.Color("#2CD7C7")
	ColorAccent = lipgloss.Color("#20B9B4")
	ColorBorder = lipgloss.Color("#16858E")
	ColorSlate  = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Accent:  lipgloss.NewStyle().Foreground(ColorAccent),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1),
}

// Icon is a status marker.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
	IconArrow   Icon = "→"
)

// Mode selects how a Printer renders.
type Mode int

const (
	// ModeAuto is ModeRich on a terminal and ModePlain otherwise.
	ModeAuto Mode = iota

	// ModeRich uses colors, icons and boxes.
	ModeRich

	// ModePlain writes unstyled, line-oriented text suitable for scripts.
	ModePlain
)

// Printer writes styled CLI output.
type Printer struct {
	w    io.Writer
	rich bool
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	rich := mode == ModeRich
	if mode == ModeAuto {
		rich = isTerminal(w)
	}
	return &Printer{w: w, rich: rich}
}

// Rich reports whether the printer styles its output.
func (p *Printer) Rich() bool { return p.rich }

// Title prints a heading. Plain printers omit it.
func (p *Printer) Title(text string) {
	if !p.rich {
		return
	}
	fmt.Fprintln(p.w, Styles.Title.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	p.status(IconSuccess, Styles.Success, "OK", text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	p.status(IconWarning, Styles.Warning, "WARN", text)
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	p.status(IconError, Styles.Error, "ERROR", text)
}

func (p *Printer) status(icon Icon, style lipgloss.Style, prefix, text string) {
	if !p.rich {
		fmt.Fprintf(p.w, "%s: %s\n", prefix, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", style.Render(string(icon)), style.Render(text))
}

// Item prints one list entry: a primary value followed by muted details.
// Plain printers separate fields with tabs.
func (p *Printer) Item(primary string, details ...string) {
	if !p.rich {
		fmt.Fprintln(p.w, strings.Join(append([]string{primary}, details...), "\t"))
		return
	}
	line := Styles.Accent.Render(string(IconBullet)) + " " + Styles.Bold.Render(primary)
	if len(details) > 0 {
		line += " " + Styles.Muted.Render(strings.Join(details, " "))
	}
	fmt.Fprintln(p.w, line)
}

// Detail prints an indented key/value under the previous item.
func (p *Printer) Detail(key string, value any) {
	if !p.rich {
		fmt.Fprintf(p.w, "\t%s=%v\n", key, value)
		return
	}
	fmt.Fprintf(p.w, "    %s %s %v\n", Styles.Muted.Render(key), Styles.Muted.Render(string(IconArrow)), value)
}

// Box prints content in a rounded box.
func (p *Printer) Box(title, content string) {
	if !p.rich {
		fmt.Fprintf(p.w, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// Counts prints a summary line of labelled counts, in argument order.
func (p *Printer) Counts(pairs ...Count) {
	parts := make([]string, 0, len(pairs))
	for _, c := range pairs {
		if p.rich {
			parts = append(parts, Styles.Bold.Render(fmt.Sprintf("%d", c.N))+" "+Styles.Muted.Render(c.Label))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%d", c.Label, c.N))
		}
	}
	if p.rich {
		fmt.Fprintln(p.w, strings.Join(parts, "  "))
		return
	}
	fmt.Fprintln(p.w, "SUMMARY: "+strings.Join(parts, " "))
}

// Count is a labelled number for Counts.
type Count struct {
	Label string
	N     int
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

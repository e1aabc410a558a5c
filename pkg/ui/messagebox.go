// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ui shows message boxes through the host shell.
package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/clide-dev/clide/pkg/composition"
	"github.com/clide-dev/clide/pkg/logging"
)

// ContractMessageBox is the contract exported by the message box service part.
const ContractMessageBox = "clide.message_box"

// DefaultTitle is the title used when none is given.
const DefaultTitle = "Visual Studio"

// ErrNoShell is returned when the service has no shell to show boxes on.
var ErrNoShell = errors.New("no shell available")

// Button selects the buttons shown in a message box.
type Button int

const (
	ButtonOK Button = iota
	ButtonOKCancel
	ButtonYesNoCancel
	ButtonYesNo
)

// Icon selects the icon shown in a message box.
type Icon int

const (
	IconNone Icon = iota
	IconError
	IconQuestion
	IconWarning
	IconInformation
)

// Result is the button the user chose.
type Result int

const (
	ResultNone Result = iota
	ResultOK
	ResultCancel
	ResultYes
	ResultNo
)

// String returns the lowercase button name.
func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultOK:
		return "ok"
	case ResultCancel:
		return "cancel"
	case ResultYes:
		return "yes"
	case ResultNo:
		return "no"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// MessageBox is a fully specified message box request.
type MessageBox struct {
	Message string
	Title   string
	Button  Button
	Icon    Icon
	Default Result
}

// Shell displays message boxes. It is implemented by the host.
type Shell interface {
	ShowMessageBox(ctx context.Context, box MessageBox) (Result, error)
}

// Option adjusts a message box before it is shown.
type Option func(*MessageBox)

// WithTitle sets the title.
func WithTitle(title string) Option {
	return func(b *MessageBox) { b.Title = title }
}

// WithButton sets the buttons.
func WithButton(button Button) Option {
	return func(b *MessageBox) { b.Button = button }
}

// WithIcon sets the icon.
func WithIcon(icon Icon) Option {
	return func(b *MessageBox) { b.Icon = icon }
}

// WithDefault sets the default result.
func WithDefault(result Result) Option {
	return func(b *MessageBox) { b.Default = result }
}

// Service shows message boxes on a Shell.
type Service struct {
	shell  Shell
	logger *logging.Logger
}

// NewService creates a service over shell. A nil logger is replaced by a
// quiet one.
func NewService(shell Shell, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{shell: shell, logger: logger}
}

// Show displays message and maps the answer to a tri-state: true for OK or
// Yes, false for No, nil for anything else.
//
// Defaults: DefaultTitle, ButtonOK, IconNone, ResultOK.
func (s *Service) Show(ctx context.Context, message string, opts ...Option) (*bool, error) {
	box := newBox(message, IconNone, opts)
	result, err := s.show(ctx, box)
	if err != nil {
		return nil, err
	}

	var answer bool
	switch result {
	case ResultOK, ResultYes:
		answer = true
	case ResultNo:
		answer = false
	default:
		return nil, nil
	}
	return &answer, nil
}

// Prompt displays message and returns the chosen button. The icon defaults
// to IconQuestion.
func (s *Service) Prompt(ctx context.Context, message string, opts ...Option) (Result, error) {
	return s.show(ctx, newBox(message, IconQuestion, opts))
}

func (s *Service) show(ctx context.Context, box MessageBox) (Result, error) {
	if s.shell == nil {
		return ResultNone, ErrNoShell
	}
	result, err := s.shell.ShowMessageBox(ctx, box)
	if err != nil {
		return ResultNone, fmt.Errorf("show message box: %w", err)
	}
	s.logger.Debug("message box closed", "title", box.Title, "result", result.String())
	return result, nil
}

func newBox(message string, icon Icon, opts []Option) MessageBox {
	box := MessageBox{
		Message: message,
		Title:   DefaultTitle,
		Button:  ButtonOK,
		Icon:    icon,
		Default: ResultOK,
	}
	for _, opt := range opts {
		opt(&box)
	}
	return box
}

// Part returns a shared part exporting a Service over shell.
//
// Every instance created from the part's factory shares one Service.
func Part(shell Shell, logger *logging.Logger) *composition.PartDefinition {
	svc := NewService(shell, logger)
	return &composition.PartDefinition{
		Type:     composition.TypeOf[Service](),
		Metadata: composition.NewMetadata().Set(composition.CreationPolicyKey, composition.Shared),
		Exports: []composition.ExportDefinition{
			{ContractName: ContractMessageBox, Metadata: composition.NewMetadata()},
		},
		Factory: func(context.Context) (any, error) { return svc, nil },
	}
}

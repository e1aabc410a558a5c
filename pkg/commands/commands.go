// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package commands manages editor commands and the filters that adjust
// their status.
//
// Commands and filters are registered explicitly with AddCommand and
// AddFilter, or discovered in a composition catalog by AddCommands and
// AddFilters. Discovered parts export ContractCommand or ContractFilter and
// describe themselves through export metadata:
//
//	exports:
//	  - contract: clide.command
//	    metadata:
//	      package_id: 6f1c0d8e-3b9e-4c47-9a1e-2f1d9a3c1b10
//	      group: 0a7d5c1e-8f1b-4a7e-b3d4-5c6e7f809a1b
//	      id: 256
//	      text: Format Document
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Contracts exported by discoverable commands and filters.
const (
	ContractCommand = "clide.command"
	ContractFilter  = "clide.command_filter"
)

// Export metadata keys.
const (
	KeyPackageID = "package_id"
	KeyGroup     = "group"
	KeyID        = "id"
	KeyText      = "text"
	KeyTargets   = "targets"
)

var (
	// ErrCommandNotFound is returned for ids that were never registered.
	ErrCommandNotFound = errors.New("command not found")

	// ErrCommandDisabled is returned by Execute when the resolved status is not enabled.
	ErrCommandDisabled = errors.New("command is disabled")

	// ErrDuplicateCommand is returned when an id is registered twice.
	ErrDuplicateCommand = errors.New("command already registered")

	// ErrInvalidMetadata is returned for missing or malformed command or filter metadata.
	ErrInvalidMetadata = errors.New("invalid command metadata")

	// ErrUnexpectedInstance is returned when a discovered part does not
	// implement the interface its contract promises.
	ErrUnexpectedInstance = errors.New("part instance has unexpected type")
)

// CommandID identifies a command within its group.
type CommandID struct {
	Group uuid.UUID
	ID    int
}

// String formats the id as "group:id".
func (c CommandID) String() string {
	return c.Group.String() + ":" + strconv.Itoa(c.ID)
}

// ParseCommandID parses the "group:id" form produced by String.
func ParseCommandID(s string) (CommandID, error) {
	group, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return CommandID{}, fmt.Errorf("%w: command id %q is not group:id", ErrInvalidMetadata, s)
	}
	g, err := uuid.Parse(group)
	if err != nil {
		return CommandID{}, fmt.Errorf("%w: command group %q: %v", ErrInvalidMetadata, group, err)
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return CommandID{}, fmt.Errorf("%w: command id %q: %v", ErrInvalidMetadata, id, err)
	}
	return CommandID{Group: g, ID: n}, nil
}

// Status is the visible state of a command.
type Status struct {
	Visible bool
	Enabled bool
	Checked bool

	// Text overrides the command's display text when non-empty.
	Text string
}

// Command is an executable command.
type Command interface {
	Execute(ctx context.Context) error
}

// StatusQuerier is implemented by commands that compute their own status.
type StatusQuerier interface {
	QueryStatus(ctx context.Context, status *Status)
}

// Filter adjusts the status of commands owned by someone else.
type Filter interface {
	QueryStatus(ctx context.Context, id CommandID, status *Status)
}

// CommandMetadata describes a registered command.
type CommandMetadata struct {
	PackageID uuid.UUID `validate:"required"`
	Group     uuid.UUID `validate:"required"`
	ID        int       `validate:"gte=0"`
	Text      string    `validate:"max=256"`
}

// CommandID returns the command's id.
func (m CommandMetadata) CommandID() CommandID {
	return CommandID{Group: m.Group, ID: m.ID}
}

// FilterMetadata describes a registered filter.
type FilterMetadata struct {
	PackageID uuid.UUID `validate:"required"`

	// Targets lists the commands the filter applies to; empty means all.
	Targets []CommandID
}

// appliesTo reports whether the filter targets id.
func (m FilterMetadata) appliesTo(id CommandID) bool {
	if len(m.Targets) == 0 {
		return true
	}
	for _, t := range m.Targets {
		if t == id {
			return true
		}
	}
	return false
}

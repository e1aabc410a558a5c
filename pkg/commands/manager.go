// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clide-dev/clide/pkg/composition"
	"github.com/clide-dev/clide/pkg/logging"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	commandExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clide_command_executions_total",
		Help: "Total command executions by outcome",
	}, []string{"outcome"})

	statusQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clide_command_status_queries_total",
		Help: "Total command status queries",
	})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clide_command_registrations_total",
		Help: "Total registered commands and filters",
	}, []string{"kind"})
)

var validate = validator.New()

// =============================================================================
// Manager
// =============================================================================

type registeredCommand struct {
	command Command
	meta    CommandMetadata
}

type registeredFilter struct {
	filter Filter
	meta   FilterMetadata
}

// Manager holds the registered commands and filters.
//
// # Status Resolution
//
// QueryStatus starts from a visible, enabled status, lets the command update
// it if it implements StatusQuerier, then runs every filter targeting the
// command in registration order. The last writer wins.
//
// # Thread Safety
//
// Safe for concurrent use. Commands and filters are called without the
// manager's lock held.
type Manager struct {
	logger *logging.Logger

	mu       sync.RWMutex
	commands map[CommandID]registeredCommand
	filters  []registeredFilter
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{commands: make(map[CommandID]registeredCommand)}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.Nop()
	}
	return m
}

// AddCommand registers cmd under meta.
//
// Returns ErrInvalidMetadata if meta fails validation and
// ErrDuplicateCommand if its id is already taken.
func (m *Manager) AddCommand(cmd Command, meta CommandMetadata) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrInvalidMetadata)
	}
	if err := validate.Struct(meta); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	id := meta.CommandID()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.commands[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, id)
	}
	m.commands[id] = registeredCommand{command: cmd, meta: meta}
	registrations.WithLabelValues("command").Inc()

	m.logger.Debug("command registered", "id", id.String(), "text", meta.Text)
	return nil
}

// AddFilter registers filter under meta.
func (m *Manager) AddFilter(filter Filter, meta FilterMetadata) error {
	if filter == nil {
		return fmt.Errorf("%w: nil filter", ErrInvalidMetadata)
	}
	if err := validate.Struct(meta); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, registeredFilter{filter: filter, meta: meta})
	registrations.WithLabelValues("filter").Inc()

	m.logger.Debug("command filter registered", "package_id", meta.PackageID.String(), "targets", len(meta.Targets))
	return nil
}

// AddCommands registers every part in catalog that exports ContractCommand
// for packageID. It returns the number of commands added.
//
// Each matching part is instantiated through its factory. Registration
// stops at the first failure; commands added before it stay registered.
func (m *Manager) AddCommands(ctx context.Context, catalog composition.Catalog, packageID uuid.UUID) (int, error) {
	matches, err := composition.ExportsWhere(ctx, catalog, ContractCommand, packageMatcher(packageID))
	if err != nil {
		return 0, err
	}

	added := 0
	for _, match := range matches {
		meta, err := CommandMetadataFrom(match.Export.Metadata)
		if err != nil {
			return added, fmt.Errorf("part %s: %w", match.Part.Type, err)
		}
		inst, err := match.Part.NewInstance(ctx)
		if err != nil {
			return added, fmt.Errorf("part %s: %w", match.Part.Type, err)
		}
		cmd, ok := inst.(Command)
		if !ok {
			return added, fmt.Errorf("%w: part %s produced %T, want Command", ErrUnexpectedInstance, match.Part.Type, inst)
		}
		if err := m.AddCommand(cmd, meta); err != nil {
			return added, fmt.Errorf("part %s: %w", match.Part.Type, err)
		}
		added++
	}
	return added, nil
}

// AddFilters registers every part in catalog that exports ContractFilter
// for packageID. It returns the number of filters added.
func (m *Manager) AddFilters(ctx context.Context, catalog composition.Catalog, packageID uuid.UUID) (int, error) {
	matches, err := composition.ExportsWhere(ctx, catalog, ContractFilter, packageMatcher(packageID))
	if err != nil {
		return 0, err
	}

	added := 0
	for _, match := range matches {
		meta, err := FilterMetadataFrom(match.Export.Metadata)
		if err != nil {
			return added, fmt.Errorf("part %s: %w", match.Part.Type, err)
		}
		inst, err := match.Part.NewInstance(ctx)
		if err != nil {
			return added, fmt.Errorf("part %s: %w", match.Part.Type, err)
		}
		filter, ok := inst.(Filter)
		if !ok {
			return added, fmt.Errorf("%w: part %s produced %T, want Filter", ErrUnexpectedInstance, match.Part.Type, inst)
		}
		if err := m.AddFilter(filter, meta); err != nil {
			return added, fmt.Errorf("part %s: %w", match.Part.Type, err)
		}
		added++
	}
	return added, nil
}

// QueryStatus resolves the current status of a command.
func (m *Manager) QueryStatus(ctx context.Context, id CommandID) (Status, error) {
	statusQueries.Inc()

	m.mu.RLock()
	reg, ok := m.commands[id]
	var filters []registeredFilter
	for _, f := range m.filters {
		if f.meta.appliesTo(id) {
			filters = append(filters, f)
		}
	}
	m.mu.RUnlock()

	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrCommandNotFound, id)
	}

	status := Status{Visible: true, Enabled: true, Text: reg.meta.Text}
	if q, ok := reg.command.(StatusQuerier); ok {
		q.QueryStatus(ctx, &status)
	}
	for _, f := range filters {
		f.filter.QueryStatus(ctx, id, &status)
	}
	return status, nil
}

// Execute runs a command if its resolved status is enabled.
func (m *Manager) Execute(ctx context.Context, id CommandID) error {
	status, err := m.QueryStatus(ctx, id)
	if err != nil {
		commandExecutions.WithLabelValues("not_found").Inc()
		return err
	}
	if !status.Enabled {
		commandExecutions.WithLabelValues("disabled").Inc()
		return fmt.Errorf("%w: %s", ErrCommandDisabled, id)
	}

	m.mu.RLock()
	reg := m.commands[id]
	m.mu.RUnlock()

	if err := reg.command.Execute(ctx); err != nil {
		outcome := "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "cancelled"
		}
		commandExecutions.WithLabelValues(outcome).Inc()
		m.logger.Warn("command failed", "id", id.String(), "error", err)
		return fmt.Errorf("execute %s: %w", id, err)
	}
	commandExecutions.WithLabelValues("ok").Inc()
	return nil
}

// Commands returns the metadata of every registered command, sorted by
// group and then id.
func (m *Manager) Commands() []CommandMetadata {
	m.mu.RLock()
	out := make([]CommandMetadata, 0, len(m.commands))
	for _, reg := range m.commands {
		out = append(out, reg.meta)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group.String() < out[j].Group.String()
		}
		return out[i].ID < out[j].ID
	})
	return out
}

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
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clide-dev/clide/pkg/composition"
)

var (
	testPackage = uuid.MustParse("6f1c0d8e-3b9e-4c47-9a1e-2f1d9a3c1b10")
	otherPkg    = uuid.MustParse("11111111-2222-3333-4444-555555555555")
	testGroup   = uuid.MustParse("0a7d5c1e-8f1b-4a7e-b3d4-5c6e7f809a1b")
)

// -----------------------------------------------------------------------------
// Test doubles
// -----------------------------------------------------------------------------

type countingCommand struct {
	runs atomic.Int64
	err  error
}

func (c *countingCommand) Execute(context.Context) error {
	c.runs.Add(1)
	return c.err
}

type hiddenCommand struct{ countingCommand }

func (c *hiddenCommand) QueryStatus(_ context.Context, s *Status) {
	s.Visible = false
	s.Text = "Hidden"
}

type disablingFilter struct {
	seen []CommandID
}

func (f *disablingFilter) QueryStatus(_ context.Context, id CommandID, s *Status) {
	f.seen = append(f.seen, id)
	s.Enabled = false
}

type checkingFilter struct{}

func (checkingFilter) QueryStatus(_ context.Context, _ CommandID, s *Status) {
	s.Checked = true
}

func meta(id int, text string) CommandMetadata {
	return CommandMetadata{PackageID: testPackage, Group: testGroup, ID: id, Text: text}
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

func TestManager_AddCommand(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddCommand(&countingCommand{}, meta(1, "One")))

	err := m.AddCommand(&countingCommand{}, meta(1, "Again"))
	assert.ErrorIs(t, err, ErrDuplicateCommand)

	err = m.AddCommand(&countingCommand{}, CommandMetadata{Group: testGroup, ID: 2})
	assert.ErrorIs(t, err, ErrInvalidMetadata, "missing package id")

	err = m.AddCommand(&countingCommand{}, CommandMetadata{PackageID: testPackage, Group: testGroup, ID: -1})
	assert.ErrorIs(t, err, ErrInvalidMetadata, "negative id")

	err = m.AddCommand(nil, meta(3, ""))
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestManager_Commands(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddCommand(&countingCommand{}, meta(20, "Twenty")))
	require.NoError(t, m.AddCommand(&countingCommand{}, meta(3, "Three")))
	require.NoError(t, m.AddCommand(&countingCommand{}, meta(7, "Seven")))

	var ids []int
	for _, c := range m.Commands() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int{3, 7, 20}, ids)
}

// -----------------------------------------------------------------------------
// Status and execution
// -----------------------------------------------------------------------------

func TestManager_QueryStatus(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	require.NoError(t, m.AddCommand(&countingCommand{}, meta(1, "Plain")))
	require.NoError(t, m.AddCommand(&hiddenCommand{}, meta(2, "Shown")))

	status, err := m.QueryStatus(ctx, meta(1, "").CommandID())
	require.NoError(t, err)
	assert.Equal(t, Status{Visible: true, Enabled: true, Text: "Plain"}, status)

	status, err = m.QueryStatus(ctx, meta(2, "").CommandID())
	require.NoError(t, err)
	assert.False(t, status.Visible)
	assert.Equal(t, "Hidden", status.Text)

	_, err = m.QueryStatus(ctx, meta(99, "").CommandID())
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestManager_Filters(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	one, two := meta(1, "One"), meta(2, "Two")
	require.NoError(t, m.AddCommand(&countingCommand{}, one))
	require.NoError(t, m.AddCommand(&countingCommand{}, two))

	targeted := &disablingFilter{}
	require.NoError(t, m.AddFilter(targeted, FilterMetadata{PackageID: testPackage, Targets: []CommandID{two.CommandID()}}))
	require.NoError(t, m.AddFilter(checkingFilter{}, FilterMetadata{PackageID: testPackage}))

	s1, err := m.QueryStatus(ctx, one.CommandID())
	require.NoError(t, err)
	assert.True(t, s1.Enabled)
	assert.True(t, s1.Checked)

	s2, err := m.QueryStatus(ctx, two.CommandID())
	require.NoError(t, err)
	assert.False(t, s2.Enabled)
	assert.True(t, s2.Checked)
	assert.Equal(t, []CommandID{two.CommandID()}, targeted.seen)

	err = m.AddFilter(checkingFilter{}, FilterMetadata{})
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestManager_Execute(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	ok := &countingCommand{}
	boom := errors.New("boom")
	failing := &countingCommand{err: boom}
	disabled := &countingCommand{}

	require.NoError(t, m.AddCommand(ok, meta(1, "")))
	require.NoError(t, m.AddCommand(failing, meta(2, "")))
	require.NoError(t, m.AddCommand(disabled, meta(3, "")))
	require.NoError(t, m.AddFilter(&disablingFilter{}, FilterMetadata{
		PackageID: testPackage,
		Targets:   []CommandID{meta(3, "").CommandID()},
	}))

	require.NoError(t, m.Execute(ctx, meta(1, "").CommandID()))
	assert.Equal(t, int64(1), ok.runs.Load())

	err := m.Execute(ctx, meta(2, "").CommandID())
	assert.ErrorIs(t, err, boom)

	err = m.Execute(ctx, meta(3, "").CommandID())
	assert.ErrorIs(t, err, ErrCommandDisabled)
	assert.Equal(t, int64(0), disabled.runs.Load())

	err = m.Execute(ctx, meta(4, "").CommandID())
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

// -----------------------------------------------------------------------------
// Catalog discovery
// -----------------------------------------------------------------------------

func commandPart(typ composition.TypeRef, pkg uuid.UUID, id int, inst any) *composition.PartDefinition {
	return &composition.PartDefinition{
		Type: typ,
		Exports: []composition.ExportDefinition{{
			ContractName: ContractCommand,
			Metadata: composition.NewMetadata().
				Set(KeyPackageID, pkg.String()).
				Set(KeyGroup, testGroup.String()).
				Set(KeyID, id).
				Set(KeyText, string(typ)),
		}},
		Factory: func(context.Context) (any, error) { return inst, nil },
	}
}

func TestManager_AddCommandsFromCatalog(t *testing.T) {
	ctx := context.Background()
	filter := &disablingFilter{}
	filterPart := &composition.PartDefinition{
		Type: "cmd.Filter",
		Exports: []composition.ExportDefinition{{
			ContractName: ContractFilter,
			Metadata: composition.NewMetadata().
				Set(KeyPackageID, testPackage).
				Set(KeyTargets, []any{CommandID{Group: testGroup, ID: 10}.String()}),
		}},
		Factory: func(context.Context) (any, error) { return filter, nil },
	}

	inner, err := composition.NewTypeCatalog("Commands",
		commandPart("cmd.Format", testPackage, 10, &countingCommand{}),
		commandPart("cmd.Build", testPackage, 11, &countingCommand{}),
		commandPart("cmd.Foreign", otherPkg, 12, &countingCommand{}),
		filterPart,
	)
	require.NoError(t, err)
	catalog := composition.NewDecoratingCatalog(inner)

	m := NewManager()
	n, err := m.AddCommands(ctx, catalog, testPackage)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = m.AddFilters(ctx, catalog, testPackage)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = m.Execute(ctx, CommandID{Group: testGroup, ID: 10})
	assert.ErrorIs(t, err, ErrCommandDisabled)
	require.NoError(t, m.Execute(ctx, CommandID{Group: testGroup, ID: 11}))

	_, err = m.QueryStatus(ctx, CommandID{Group: testGroup, ID: 12})
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestManager_AddCommandsErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("instance is not a command", func(t *testing.T) {
		inner, err := composition.NewTypeCatalog("", commandPart("cmd.Wrong", testPackage, 1, "not a command"))
		require.NoError(t, err)
		_, err = NewManager().AddCommands(ctx, inner, testPackage)
		assert.ErrorIs(t, err, ErrUnexpectedInstance)
	})

	t.Run("missing id", func(t *testing.T) {
		p := commandPart("cmd.NoID", testPackage, 1, &countingCommand{})
		p.Exports[0].Metadata.Delete(KeyID)
		inner, err := composition.NewTypeCatalog("", p)
		require.NoError(t, err)
		_, err = NewManager().AddCommands(ctx, inner, testPackage)
		assert.ErrorIs(t, err, ErrInvalidMetadata)
	})

	t.Run("no factory", func(t *testing.T) {
		p := commandPart("cmd.NoFactory", testPackage, 1, nil)
		p.Factory = nil
		inner, err := composition.NewTypeCatalog("", p)
		require.NoError(t, err)
		_, err = NewManager().AddCommands(ctx, inner, testPackage)
		assert.ErrorIs(t, err, composition.ErrNoFactory)
	})
}

func TestParseCommandID(t *testing.T) {
	id := CommandID{Group: testGroup, ID: 42}
	parsed, err := ParseCommandID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	for _, bad := range []string{"", "nogroup", "not-a-uuid:1", testGroup.String() + ":x"} {
		_, err := ParseCommandID(bad)
		assert.ErrorIs(t, err, ErrInvalidMetadata, bad)
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clide-dev/clide/pkg/composition"
)

const sampleRules = `
parts:
  - match: "ui.*"
    creation_policy: non_shared
    set:
      owner: shell
  - match: "*"
    set:
      decorated: true
    remove: [secret]
exports:
  - match: "github.com/clide-dev/clide/*/ui.Service"
    contract: "Message*"
    set:
      channel: dialogs
`

func TestParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		rs, err := Parse([]byte(sampleRules))
		require.NoError(t, err)
		require.Len(t, rs.Parts, 2)
		require.Len(t, rs.Exports, 1)
		assert.Equal(t, "non_shared", rs.Parts[0].CreationPolicy)
		assert.Equal(t, []string{"secret"}, rs.Parts[1].Remove)
	})

	t.Run("empty", func(t *testing.T) {
		rs, err := Parse(nil)
		require.NoError(t, err)
		assert.Empty(t, rs.Parts)
	})

	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "parts:\n  - match: x\n    colour: red\n"},
		{"missing match", "parts:\n  - set: {a: 1}\n"},
		{"bad glob", "parts:\n  - match: \"[\"\n"},
		{"bad policy", "parts:\n  - match: x\n    creation_policy: sometimes\n"},
		{"bad contract glob", "exports:\n  - match: x\n    contract: \"[\"\n"},
		{"not yaml", "parts: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidRuleSet)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sampleRules), 0o600))

	rs, err := LoadFile(p)
	require.NoError(t, err)
	assert.Len(t, rs.Parts, 2)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCompile(t *testing.T) {
	ctx := context.Background()
	rs, err := Parse([]byte(sampleRules))
	require.NoError(t, err)

	svc := &composition.PartDefinition{
		Type:     "github.com/clide-dev/clide/pkg/ui.Service",
		Metadata: composition.NewMetadata().Set("secret", "x"),
		Exports: []composition.ExportDefinition{
			{ContractName: "MessageBox"},
			{ContractName: "Prompt"},
		},
	}
	other := &composition.PartDefinition{
		Type:    "github.com/clide-dev/clide/pkg/commands.Manager",
		Exports: []composition.ExportDefinition{{ContractName: "MessageBox"}},
	}
	inner, err := composition.NewTypeCatalog("Parts", svc, other)
	require.NoError(t, err)

	catalog := composition.NewDecoratingCatalog(inner)
	require.NoError(t, rs.Decorate(catalog))

	parts, err := catalog.Parts(ctx)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	// the ui part becomes non-shared, so it is listed after the manager
	mgr, ui := parts[0], parts[1]
	assert.Equal(t, other.Type, mgr.Type)
	assert.Equal(t, svc.Type, ui.Type)

	assert.Equal(t, "shell", ui.Metadata["owner"])
	assert.Equal(t, true, ui.Metadata["decorated"])
	assert.False(t, ui.Metadata.Has("secret"))
	policy, err := ui.CreationPolicy()
	require.NoError(t, err)
	assert.Equal(t, composition.NonShared, policy)

	assert.False(t, mgr.Metadata.Has("owner"))
	assert.Equal(t, true, mgr.Metadata["decorated"])

	box, _ := ui.Export("MessageBox")
	assert.Equal(t, "dialogs", box.Metadata["channel"])
	prompt, _ := ui.Export("Prompt")
	assert.False(t, prompt.Metadata.Has("channel"))
	mgrBox, _ := mgr.Export("MessageBox")
	assert.False(t, mgrBox.Metadata.Has("channel"))
}

func TestMatchType(t *testing.T) {
	ref := composition.TypeRef("github.com/clide-dev/clide/pkg/ui.Service")
	assert.True(t, matchType("ui.*", ref))
	assert.True(t, matchType("*.Service", ref))
	assert.True(t, matchType("github.com/clide-dev/clide/pkg/*", ref))
	assert.False(t, matchType("github.com/other/*", ref))
	assert.False(t, matchType("commands.*", ref))
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package composition

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleService struct{}

func TestTypeOf(t *testing.T) {
	ref := TypeOf[sampleService]()
	assert.Equal(t, TypeRef("github.com/clide-dev/clide/pkg/composition.sampleService"), ref)
	assert.Equal(t, ref, TypeOf[*sampleService]())
	assert.Equal(t, "composition.sampleService", ref.ShortName())
	assert.Equal(t, TypeRef("int"), TypeOf[int]())
}

func TestParseCreationPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    CreationPolicy
		wantErr bool
	}{
		{"", Any, false},
		{"any", Any, false},
		{"Shared", Shared, false},
		{"non_shared", NonShared, false},
		{"NonShared", NonShared, false},
		{"non-shared", NonShared, false},
		{"sometimes", Any, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCreationPolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCreationPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreationPolicy_String(t *testing.T) {
	for _, p := range []CreationPolicy{Any, Shared, NonShared} {
		parsed, err := ParseCreationPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
	assert.Equal(t, "CreationPolicy(9)", CreationPolicy(9).String())
}

func TestPartDefinition_CreationPolicy(t *testing.T) {
	p := &PartDefinition{Type: "a.One"}
	policy, err := p.CreationPolicy()
	require.NoError(t, err)
	assert.Equal(t, Any, policy)

	p.Metadata = NewMetadata().Set(CreationPolicyKey, "non_shared")
	nonShared, err := p.IsNonShared()
	require.NoError(t, err)
	assert.True(t, nonShared)

	p.Metadata = NewMetadata().Set(CreationPolicyKey, true)
	_, err = p.IsNonShared()
	assert.ErrorIs(t, err, ErrInvalidCreationPolicy)
}

func TestPartDefinition_NewInstance(t *testing.T) {
	ctx := context.Background()
	p := &PartDefinition{Type: "a.One"}
	_, err := p.NewInstance(ctx)
	assert.ErrorIs(t, err, ErrNoFactory)

	boom := errors.New("boom")
	p.Factory = func(context.Context) (any, error) { return nil, boom }
	_, err = p.NewInstance(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestMetadata(t *testing.T) {
	m := NewMetadata().Set("s", "v").Set("i", 3).Set("b", true)

	s, ok := m.GetString("s")
	assert.True(t, ok)
	assert.Equal(t, "v", s)
	_, ok = m.GetString("i")
	assert.False(t, ok)

	i, ok := m.GetInt("i")
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	b, ok := m.GetBool("b")
	assert.True(t, ok)
	assert.True(t, b)

	assert.Equal(t, []string{"b", "i", "s"}, m.Keys())
	assert.Equal(t, 3, m.Len())

	clone := m.Clone()
	clone.Delete("s")
	assert.True(t, m.Has("s"), "Clone must not share the map")

	var empty Metadata
	assert.NotNil(t, empty.Clone())
	assert.Equal(t, 1, NewMetadata().Merge(Metadata{"k": 1}).Merge(nil).Len())
}

func TestChainDecorators(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var order []string

	chain := ChainPartDecorators(
		func(context.Context, *DecoratedPart) error { order = append(order, "first"); return nil },
		nil,
		func(context.Context, *DecoratedPart) error { order = append(order, "second"); return boom },
		func(context.Context, *DecoratedPart) error { order = append(order, "third"); return nil },
	)
	err := chain(ctx, newDecoratedPart(&PartDefinition{Type: "a.One"}))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, order)

	exports := ChainExportDecorators(nil, func(_ context.Context, e *DecoratedExport) error {
		e.NewMetadata.Set("k", 1)
		return nil
	})
	de := newDecoratedExport(&PartDefinition{Type: "a.One"}, ExportDefinition{ContractName: "c"})
	require.NoError(t, exports(ctx, de))
	assert.Equal(t, 1, de.NewMetadata["k"])
}

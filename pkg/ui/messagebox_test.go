// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ui

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clide-dev/clide/pkg/composition"
)

type fakeShell struct {
	result Result
	err    error
	last   MessageBox
}

func (f *fakeShell) ShowMessageBox(_ context.Context, box MessageBox) (Result, error) {
	f.last = box
	return f.result, f.err
}

func TestService_ShowDefaults(t *testing.T) {
	shell := &fakeShell{result: ResultOK}
	svc := NewService(shell, nil)

	answer, err := svc.Show(context.Background(), "Saved.")
	require.NoError(t, err)
	require.NotNil(t, answer)
	assert.True(t, *answer)

	assert.Equal(t, MessageBox{
		Message: "Saved.",
		Title:   "Visual Studio",
		Button:  ButtonOK,
		Icon:    IconNone,
		Default: ResultOK,
	}, shell.last)
}

func TestService_ShowMapsResults(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		result Result
		want   *bool
	}{
		{ResultOK, &yes},
		{ResultYes, &yes},
		{ResultNo, &no},
		{ResultCancel, nil},
		{ResultNone, nil},
	}
	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			svc := NewService(&fakeShell{result: tt.result}, nil)
			got, err := svc.Show(context.Background(), "Continue?", WithButton(ButtonYesNoCancel))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Prompt(t *testing.T) {
	shell := &fakeShell{result: ResultNo}
	svc := NewService(shell, nil)

	result, err := svc.Prompt(context.Background(), "Overwrite?",
		WithTitle("Files"), WithButton(ButtonYesNo), WithDefault(ResultNo))
	require.NoError(t, err)
	assert.Equal(t, ResultNo, result)
	assert.Equal(t, IconQuestion, shell.last.Icon)
	assert.Equal(t, "Files", shell.last.Title)
	assert.Equal(t, ResultNo, shell.last.Default)

	_, err = svc.Prompt(context.Background(), "Sure?", WithIcon(IconWarning))
	require.NoError(t, err)
	assert.Equal(t, IconWarning, shell.last.Icon)
}

func TestService_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewService(&fakeShell{err: boom}, nil).Show(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	_, err = NewService(nil, nil).Prompt(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoShell)
}

func TestPart(t *testing.T) {
	ctx := context.Background()
	shell := &fakeShell{result: ResultYes}
	inner, err := composition.NewTypeCatalog("UI", Part(shell, nil))
	require.NoError(t, err)

	matches, err := composition.Exports(ctx, composition.NewDecoratingCatalog(inner), ContractMessageBox)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, composition.TypeRef("github.com/clide-dev/clide/pkg/ui.Service"), matches[0].Part.Type)

	first, err := matches[0].Part.NewInstance(ctx)
	require.NoError(t, err)
	second, err := matches[0].Part.NewInstance(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	svc, ok := first.(*Service)
	require.True(t, ok)
	answer, err := svc.Show(ctx, "ok?")
	require.NoError(t, err)
	assert.True(t, *answer)
}

package types

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSet(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"blank only", []string{" ", ""}, nil},
		{"dedupe case", []string{"Go", "go ", "Rust"}, []string{"go", "rust"}},
		{"sorted", []string{"zeta", "alpha"}, []string{"alpha", "zeta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSet(tt.in))
		})
	}
}

func TestCapabilitiesGeneratorSelection(t *testing.T) {
	local := GeneratorFunc(func(context.Context, string, int, []Turn) (string, error) { return "local", nil })
	external := GeneratorFunc(func(context.Context, string, int, []Turn) (string, error) { return "external", nil })

	caps := Capabilities{Generate: local}
	out, err := caps.Generator(true).Generate(context.Background(), "", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", out, "falls back to Generate without External")

	caps.External = external
	out, _ = caps.Generator(true).Generate(context.Background(), "", 0, nil)
	assert.Equal(t, "external", out)
	out, _ = caps.Generator(false).Generate(context.Background(), "", 0, nil)
	assert.Equal(t, "local", out)
}

func TestErrorsUnwrap(t *testing.T) {
	root := errors.New("boom")

	var genErr *GenerationError
	wrapped := error(&GenerationError{Attempts: 3, Err: root})
	require.ErrorAs(t, wrapped, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
	assert.ErrorIs(t, wrapped, root)
	assert.Contains(t, wrapped.Error(), "3 attempt(s)")

	for _, err := range []error{
		&AugmentationError{Source: "web", Err: root},
		&AnnotationError{Kind: "topics", Err: root},
		&DialogueAbandonedError{TaskID: "t1", Err: root},
		&PersistenceError{RecordID: "r1", Err: root},
	} {
		assert.ErrorIs(t, err, root, err.Error())
	}
}

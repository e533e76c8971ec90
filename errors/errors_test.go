package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ErrorInvalid, "invalid"},
		{ErrorNotFound, "not_found"},
		{ErrorConflict, "conflict"},
		{ErrorPersistence, "persistence"},
		{ErrorUnavailable, "unavailable"},
		{ErrorClass(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.class.String())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"invalid sentinel", ErrInvalidID, ErrorInvalid},
		{"wrapped invalid", fmt.Errorf("decode: %w", ErrInvalidKind), ErrorInvalid},
		{"empty name", ErrEmptyName, ErrorInvalid},
		{"not found", ErrNotFound, ErrorNotFound},
		{"conflict", ErrConflict, ErrorConflict},
		{"store unavailable", ErrStoreUnavailable, ErrorUnavailable},
		{"unknown defaults to persistence", New("disk fell over"), ErrorPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifiedErrorWrapping(t *testing.T) {
	base := New("row vanished")
	err := WrapPersistence(base, "changelog", "Record", "insert entry")
	require.Error(t, err)

	var ce *ClassifiedError
	require.True(t, As(err, &ce))
	assert.Equal(t, ErrorPersistence, ce.Class)
	assert.Equal(t, "changelog", ce.Component)
	assert.Equal(t, "Record", ce.Operation)
	assert.True(t, Is(err, base))
	assert.True(t, IsPersistence(err))
	assert.False(t, IsConflict(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapConflict(nil, "a", "b", "c"))
	assert.NoError(t, WrapPersistence(nil, "a", "b", "c"))
	assert.NoError(t, WrapUnavailable(nil, "a", "b", "c"))
}

func TestPredicatesOnNil(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsConflict(nil))
	assert.False(t, IsPersistence(nil))
	assert.False(t, IsUnavailable(nil))
}

func TestFormattedConstructors(t *testing.T) {
	err := Conflictf("sandbox", "Save", "word %d changed by user %d", 5, 2)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "sandbox.Save")
	assert.Contains(t, err.Error(), "word 5 changed by user 2")

	err = NotFoundf("term", "LoadByName", "no term named %q", "Zurich")
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), `"Zurich"`)

	err = Invalidf("term", "DecodeTerm", "term id 0 is not defined")
	assert.True(t, IsInvalid(err))
	assert.True(t, Is(err, ErrInvalidArgument))
}

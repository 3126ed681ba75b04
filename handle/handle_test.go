package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyrt/ffi/scope"
	"github.com/polyrt/ffi/value"
)

func TestClearRemovesIntroducedNames(t *testing.T) {
	root := scope.New()
	require.NoError(t, root.Define("a", value.NewInt(1)))
	require.NoError(t, root.Define("b", value.NewInt(2)))

	h := New([]string{"a", "b"}, nil)
	h.Clear(root)

	_, ok := root.Get("a")
	assert.False(t, ok)
	_, ok = root.Get("b")
	assert.False(t, ok)
	assert.True(t, h.IsCleared())
}

func TestClearLeavesUnrelatedNamesAlone(t *testing.T) {
	root := scope.New()
	require.NoError(t, root.Define("a", value.NewInt(1)))
	require.NoError(t, root.Define("other", value.NewInt(99)))

	h := New([]string{"a"}, nil)
	h.Clear(root)

	_, ok := root.Get("other")
	assert.True(t, ok)
}

func TestClearDefersUntilInFlightInvocationsComplete(t *testing.T) {
	root := scope.New()
	require.NoError(t, root.Define("a", value.NewInt(1)))

	h := New([]string{"a"}, nil)
	h.BeginInvocation()
	h.Clear(root)

	assert.True(t, h.IsDraining())
	assert.False(t, h.IsCleared())

	h.EndInvocation()
	assert.True(t, h.IsCleared())
	assert.False(t, h.IsDraining())
}

func TestClearIsIdempotent(t *testing.T) {
	root := scope.New()
	h := New([]string{"a"}, nil)
	h.Clear(root)
	h.Clear(root) // must not panic or re-enter draining
	assert.True(t, h.IsCleared())
}

func TestDescriptorAndNamesAreImmutableSnapshot(t *testing.T) {
	h := New([]string{"a", "b"}, "descriptor")
	names := h.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, h.Names())
	assert.Equal(t, "descriptor", h.Descriptor())
}

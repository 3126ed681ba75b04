package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyrt/ffi/scope"
)

func TestLoadFromFileFunctionNameRelativeToScriptPath(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "x", "y.txt"), []byte("hello"), 0o644))

	t.Setenv("LOADER_SCRIPT_PATH", filepath.Join(base, "x"))

	ctx := context.Background()
	b := New()
	require.NoError(t, b.ExecutionPath(ctx, nil, base))

	h, err := b.LoadFromFile(ctx, nil, []string{"x/y.txt"})
	require.NoError(t, err)

	root := scope.New()
	require.NoError(t, b.Discover(ctx, nil, h, root))

	_, ok := root.Get("y.txt")
	assert.True(t, ok)
}

func TestLoadFromFileFunctionNameAbsoluteWithoutScriptPath(t *testing.T) {
	t.Setenv("LOADER_SCRIPT_PATH", "")
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "x"), 0o755))
	full := filepath.Join(base, "x", "y.txt")
	require.NoError(t, os.WriteFile(full, []byte("hello"), 0o644))

	ctx := context.Background()
	b := New()
	require.NoError(t, b.ExecutionPath(ctx, nil, base))

	h, err := b.LoadFromFile(ctx, nil, []string{"x/y.txt"})
	require.NoError(t, err)

	root := scope.New()
	require.NoError(t, b.Discover(ctx, nil, h, root))

	abs, err := filepath.Abs(full)
	require.NoError(t, err)
	_, ok := root.Get(abs)
	assert.True(t, ok)
}

func TestLoadFromFilePartialResolutionSucceeds(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "real.txt"), []byte("x"), 0o644))

	ctx := context.Background()
	b := New()
	require.NoError(t, b.ExecutionPath(ctx, nil, base))

	h, err := b.LoadFromFile(ctx, nil, []string{"real.txt", "missing.txt"})
	require.NoError(t, err)
	assert.Len(t, h.Names(), 1)
}

func TestLoadFromFileAllUnresolvedFails(t *testing.T) {
	ctx := context.Background()
	b := New()
	_, err := b.LoadFromFile(ctx, nil, []string{"nope.txt"})
	assert.Error(t, err)
}

func TestLoadFromMemoryNotSupported(t *testing.T) {
	ctx := context.Background()
	b := New()
	_, err := b.LoadFromMemory(ctx, nil, "name", []byte("x"))
	assert.Error(t, err)
}

func TestDiscoveredFunctionReturnsItsOwnResolvedPath(t *testing.T) {
	base := t.TempDir()
	full := filepath.Join(base, "greeting.txt")
	require.NoError(t, os.WriteFile(full, []byte("hello world"), 0o644))

	ctx := context.Background()
	b := New()
	require.NoError(t, b.ExecutionPath(ctx, nil, base))

	h, err := b.LoadFromFile(ctx, nil, []string{"greeting.txt"})
	require.NoError(t, err)

	root := scope.New()
	require.NoError(t, b.Discover(ctx, nil, h, root))

	name := h.Names()[0]
	v, ok := root.Get(name)
	require.True(t, ok)
	callable, err := v.ToCallable()
	require.NoError(t, err)

	out, err := callable.Invoke(nil)
	require.NoError(t, err)
	s, err := out.ToString()
	require.NoError(t, err)
	abs, err := filepath.Abs(full)
	require.NoError(t, err)
	assert.Equal(t, abs, s)
}

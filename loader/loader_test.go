package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyrt/ffi/backend"
	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/function"
	"github.com/polyrt/ffi/handle"
	"github.com/polyrt/ffi/scope"
	"github.com/polyrt/ffi/value"
)

// fakeBackend is a minimal in-memory backend double for exercising the
// loader instance's pipeline without a real guest language.
type fakeBackend struct {
	execPaths []string
	destroyed bool
}

func (f *fakeBackend) Initialize(host backend.Host) (any, error) { return f, nil }

func (f *fakeBackend) ExecutionPath(ctx context.Context, data any, path string) error {
	f.execPaths = append(f.execPaths, path)
	return nil
}

func (f *fakeBackend) LoadFromFile(ctx context.Context, data any, paths []string) (*handle.Handle, error) {
	if len(paths) == 0 {
		return nil, ferr.New(ferr.NotFound, "no paths")
	}
	return handle.New([]string{"double"}, paths), nil
}

func (f *fakeBackend) LoadFromMemory(ctx context.Context, data any, name string, buf []byte) (*handle.Handle, error) {
	return nil, backend.Unsupported("load_from_memory")
}

func (f *fakeBackend) LoadFromPackage(ctx context.Context, data any, path string) (*handle.Handle, error) {
	return nil, backend.Unsupported("load_from_package")
}

func (f *fakeBackend) Clear(ctx context.Context, data any, h *handle.Handle) error { return nil }

func (f *fakeBackend) Discover(ctx context.Context, data any, h *handle.Handle, root *scope.Scope) error {
	dispatch := &function.DispatchTable{
		Invoke: func(fn *function.Function, args []*value.Value) (*value.Value, error) {
			n, err := args[0].ToLong()
			if err != nil {
				return nil, err
			}
			return value.NewLong(n * 2), nil
		},
	}
	fn, err := function.Create("double", function.NewSignature(1), nil, dispatch)
	if err != nil {
		return err
	}
	return root.Define("double", value.NewFunction(fn))
}

func (f *fakeBackend) Destroy(ctx context.Context, data any) error {
	f.destroyed = true
	return nil
}

func (f *fakeBackend) FunctionInterface() *function.DispatchTable { return nil }

func TestLoadFromFileDiscoversSymbols(t *testing.T) {
	ctx := context.Background()
	inst, err := New(ctx, "fake", &fakeBackend{})
	require.NoError(t, err)

	_, err = inst.LoadFromFile(ctx, []string{"script.fake"})
	require.NoError(t, err)

	v, ok := inst.Context().Root().Get("double")
	require.True(t, ok)
	callable, err := v.ToCallable()
	require.NoError(t, err)

	out, err := callable.Invoke([]*value.Value{value.NewLong(21)})
	require.NoError(t, err)
	n, err := out.ToLong()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestLoadFromFileNoPathsFails(t *testing.T) {
	ctx := context.Background()
	inst, err := New(ctx, "fake", &fakeBackend{})
	require.NoError(t, err)

	_, err = inst.LoadFromFile(ctx, nil)
	assert.Error(t, err)
}

func TestClearRemovesDiscoveredSymbols(t *testing.T) {
	ctx := context.Background()
	inst, err := New(ctx, "fake", &fakeBackend{})
	require.NoError(t, err)

	h, err := inst.LoadFromFile(ctx, []string{"script.fake"})
	require.NoError(t, err)

	require.NoError(t, inst.Clear(ctx, h.ID()))
	_, ok := inst.Context().Root().Get("double")
	assert.False(t, ok)
}

func TestDestroyTearsDownBackendAfterHandles(t *testing.T) {
	ctx := context.Background()
	be := &fakeBackend{}
	inst, err := New(ctx, "fake", be)
	require.NoError(t, err)

	_, err = inst.LoadFromFile(ctx, []string{"script.fake"})
	require.NoError(t, err)

	errs := inst.Destroy(ctx)
	assert.Empty(t, errs)
	assert.True(t, be.destroyed)
	_, ok := inst.Context().Root().Get("double")
	assert.False(t, ok)
}

func TestLoadFromMemoryNotSupported(t *testing.T) {
	ctx := context.Background()
	inst, err := New(ctx, "fake", &fakeBackend{})
	require.NoError(t, err)

	_, err = inst.LoadFromMemory(ctx, "name", []byte("x"))
	assert.Error(t, err)
	assert.True(t, ferr.IsKind(err, ferr.NotSupported))
}

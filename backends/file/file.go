// Package file implements the file-style loader backend used by the
// end-to-end scenario in spec section 8: a function is discovered per
// resolved file, named after the file's path relative to
// LOADER_SCRIPT_PATH when that variable is set, or its resolved absolute
// path otherwise.
package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/polyrt/ffi/backend"
	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/function"
	"github.com/polyrt/ffi/handle"
	"github.com/polyrt/ffi/scope"
	"github.com/polyrt/ffi/telemetry"
	"github.com/polyrt/ffi/value"
)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger attaches a logger for execution-path resolution diagnostics.
func WithLogger(l telemetry.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// Backend is the file-style loader backend.
type Backend struct {
	mu          sync.Mutex
	searchPaths []string
	logger      telemetry.Logger
}

// New constructs a file backend.
func New(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = telemetry.NewNoopLogger()
	}
	return b
}

func (b *Backend) Initialize(host backend.Host) (any, error) { return b, nil }

// ExecutionPath adds path to the backend's search path.
func (b *Backend) ExecutionPath(ctx context.Context, data any, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searchPaths = append(b.searchPaths, path)
	return nil
}

// descriptor is the per-handle state LoadFromFile hands to Discover: the
// resolved absolute paths and the name each should be published under.
type descriptor struct {
	resolvedPaths []string
	names         []string
}

// resolve implements the file-style load pipeline of §4.7: try the path
// as given, then each configured execution path in insertion order,
// stopping at the first hit. Unresolved paths are logged at warn and
// otherwise do not fail the overall load.
func (b *Backend) resolve(ctx context.Context, path string) (string, bool) {
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	b.mu.Lock()
	paths := append([]string(nil), b.searchPaths...)
	b.mu.Unlock()

	for _, base := range paths {
		candidate := filepath.Join(base, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// functionName derives the published name for a resolved path per
// scenario 6: relative to LOADER_SCRIPT_PATH when set, absolute
// otherwise.
func functionName(resolved string) string {
	base := os.Getenv("LOADER_SCRIPT_PATH")
	if base == "" {
		abs, err := filepath.Abs(resolved)
		if err != nil {
			return resolved
		}
		return abs
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return resolved
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}

// LoadFromFile resolves each of paths and returns a handle over whatever
// resolved. A handle with zero resolved paths is never returned; the
// load fails with not-found instead.
func (b *Backend) LoadFromFile(ctx context.Context, data any, paths []string) (*handle.Handle, error) {
	var resolved, names []string
	for _, p := range paths {
		r, ok := b.resolve(ctx, p)
		if !ok {
			b.logger.Warn(ctx, "file not found", "path", p)
			continue
		}
		resolved = append(resolved, r)
		names = append(names, functionName(r))
	}
	if len(resolved) == 0 {
		return nil, ferr.New(ferr.NotFound, "no path in the request resolved")
	}
	return handle.New(names, descriptor{resolvedPaths: resolved, names: names}), nil
}

func (b *Backend) LoadFromMemory(ctx context.Context, data any, name string, buf []byte) (*handle.Handle, error) {
	return nil, backend.Unsupported("load_from_memory")
}

func (b *Backend) LoadFromPackage(ctx context.Context, data any, path string) (*handle.Handle, error) {
	return nil, backend.Unsupported("load_from_package")
}

func (b *Backend) Clear(ctx context.Context, data any, h *handle.Handle) error { return nil }

// Discover publishes a function per resolved path, named per scenario 6's
// rule. Each function's backend-private state is its own resolved path;
// Invoke returns that path back as a string value, matching the reference
// file loader's function_file_interface_invoke, which hands back the
// function's own descriptor path rather than the file's contents.
func (b *Backend) Discover(ctx context.Context, data any, h *handle.Handle, root *scope.Scope) error {
	desc, ok := h.Descriptor().(descriptor)
	if !ok {
		return ferr.New(ferr.BackendError, "handle missing file descriptor")
	}

	for i, resolved := range desc.resolvedPaths {
		name := desc.names[i]
		fn, err := function.Create(name, function.NewSignature(0), resolved, b.FunctionInterface())
		if err != nil {
			return err
		}
		if err := root.Define(name, value.NewFunction(fn)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) Destroy(ctx context.Context, data any) error { return nil }

// fileDispatch is the process-lifetime dispatch table. Its Invoke hook
// reads only the function's own backing path, so one table serves every
// Backend.
var fileDispatch = &function.DispatchTable{
	Invoke: func(fn *function.Function, args []*value.Value) (*value.Value, error) {
		path, ok := fn.BackendImpl().(string)
		if !ok {
			return nil, ferr.Newf(ferr.BackendError, "function %q has no backing path", fn.Name())
		}
		return value.NewString(path), nil
	},
}

// FunctionInterface returns the dispatch table singleton shared by every
// function this backend discovers.
func (b *Backend) FunctionInterface() *function.DispatchTable {
	return fileDispatch
}

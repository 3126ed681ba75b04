// Package host implements the host-proxy backend (§4.9): a loader backend
// that is a no-op except that it accepts direct Register calls from the
// embedding host program, making host-supplied callables look exactly
// like guest-provided ones from a caller's perspective.
package host

import (
	"context"
	"sync"

	"github.com/polyrt/ffi/backend"
	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/function"
	"github.com/polyrt/ffi/handle"
	"github.com/polyrt/ffi/scope"
	"github.com/polyrt/ffi/value"
)

// Tag is the reserved loader tag for the host-proxy instance.
const Tag = "__metacall_host__"

// Impl is a host-supplied function body.
type Impl func(args []*value.Value) (*value.Value, error)

// Backend is the host-proxy backend. Every load_from_* operation except
// LoadFromPackage is unsupported; LoadFromPackage and Discover together
// publish whatever the host has Register'd but not yet discovered.
type Backend struct {
	mu        sync.Mutex
	pending   map[string]*function.Function
	published map[string]*function.Function
}

// New constructs an empty host-proxy backend.
func New() *Backend {
	return &Backend{
		pending:   make(map[string]*function.Function),
		published: make(map[string]*function.Function),
	}
}

// Register adds name as a pending host-proxy function. It does not take
// effect in the loader's context until the next LoadFromPackage+Discover
// round trip (the registry's RegisterHostFunction helper drives this).
func (b *Backend) Register(name string, impl Impl, sig *function.Signature) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.pending[name]; exists {
		return ferr.Newf(ferr.NameCollision, "host function %q already registered", name)
	}
	if _, exists := b.published[name]; exists {
		return ferr.Newf(ferr.NameCollision, "host function %q already registered", name)
	}

	dispatch := &function.DispatchTable{
		Invoke: func(fn *function.Function, args []*value.Value) (*value.Value, error) {
			return impl(args)
		},
	}
	fn, err := function.Create(name, sig, impl, dispatch)
	if err != nil {
		return err
	}
	b.pending[name] = fn
	return nil
}

func (b *Backend) Initialize(host backend.Host) (any, error) { return b, nil }

func (b *Backend) ExecutionPath(ctx context.Context, data any, path string) error {
	return backend.Unsupported("execution_path")
}

func (b *Backend) LoadFromFile(ctx context.Context, data any, paths []string) (*handle.Handle, error) {
	return nil, backend.Unsupported("load_from_file")
}

func (b *Backend) LoadFromMemory(ctx context.Context, data any, name string, buf []byte) (*handle.Handle, error) {
	return nil, backend.Unsupported("load_from_memory")
}

// LoadFromPackage ignores path and returns a handle over every name
// Register'd since the last successful publish.
func (b *Backend) LoadFromPackage(ctx context.Context, data any, path string) (*handle.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil, ferr.New(ferr.NotFound, "no pending host registrations")
	}
	names := make([]string, 0, len(b.pending))
	for n := range b.pending {
		names = append(names, n)
	}
	return handle.New(names, nil), nil
}

func (b *Backend) Clear(ctx context.Context, data any, h *handle.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range h.Names() {
		delete(b.published, n)
	}
	return nil
}

// Discover publishes every name in h that is still pending.
func (b *Backend) Discover(ctx context.Context, data any, h *handle.Handle, root *scope.Scope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, name := range h.Names() {
		fn, ok := b.pending[name]
		if !ok {
			continue
		}
		if err := root.Define(name, value.NewFunction(fn)); err != nil {
			return err
		}
		b.published[name] = fn
		delete(b.pending, name)
	}
	return nil
}

func (b *Backend) Destroy(ctx context.Context, data any) error { return nil }

// FunctionInterface returns nil: there is no shared table, since every
// function Register creates carries its own dispatch table.
func (b *Backend) FunctionInterface() *function.DispatchTable { return nil }

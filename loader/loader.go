// Package loader implements the loader instance: one backend plus the
// state the core keeps for it — a type registry, search paths, a context,
// and the handles produced by successful loads.
package loader

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/polyrt/ffi/backend"
	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/function"
	"github.com/polyrt/ffi/handle"
	"github.com/polyrt/ffi/scope"
	"github.com/polyrt/ffi/telemetry"
	"github.com/polyrt/ffi/types"
)

// Option configures an Instance at construction time.
type Option func(*Instance)

// WithExecutionPathRateLimit throttles how often ExecutionPath probes are
// accepted, guarding against thrashing when a configuration lists many
// search paths or is reloaded repeatedly. A nil limiter (the default)
// means unlimited.
func WithExecutionPathRateLimit(r rate.Limit, burst int) Option {
	return func(inst *Instance) {
		inst.pathLimiter = rate.NewLimiter(r, burst)
	}
}

// WithObservability attaches structured logging/metrics/tracing.
func WithObservability(obs *telemetry.Observability) Option {
	return func(inst *Instance) { inst.obs = obs }
}

// Instance is one backend plus its owned state. All mutations of that
// state are serialized behind mu: single-writer, multi-reader per
// instance, per §5.
type Instance struct {
	mu sync.Mutex

	tag  string
	be   backend.Backend
	data any

	types       *types.Registry
	searchPaths []string
	ctx         *scope.Context

	handles     map[handle.ID]*handle.Handle
	handleOrder []handle.ID

	pathLimiter *rate.Limiter
	obs         *telemetry.Observability

	destroyed bool
}

// New constructs and initializes a loader instance for tag against be.
func New(ctx context.Context, tag string, be backend.Backend, opts ...Option) (*Instance, error) {
	inst := &Instance{
		tag:     tag,
		be:      be,
		types:   types.NewRegistry(),
		ctx:     scope.NewContext(),
		handles: make(map[handle.ID]*handle.Handle),
	}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.obs == nil {
		inst.obs = telemetry.NewObservability(nil, nil, nil)
	}

	data, err := be.Initialize(inst)
	if err != nil {
		return nil, ferr.Wrap(ferr.BackendError, "initialize backend for tag "+tag, err)
	}
	inst.data = data
	return inst, nil
}

// Tag implements backend.Host and function.Owner.
func (inst *Instance) Tag() string { return inst.tag }

// Types returns the instance's type registry.
func (inst *Instance) Types() *types.Registry { return inst.types }

// Context returns the instance's namespace context.
func (inst *Instance) Context() *scope.Context { return inst.ctx }

// ExecutionPath adds path to the backend's search path, honoring the
// configured rate limit if one was set.
func (inst *Instance) ExecutionPath(ctx context.Context, path string) error {
	if inst.pathLimiter != nil {
		if err := inst.pathLimiter.Wait(ctx); err != nil {
			return ferr.Wrap(ferr.Cancelled, "execution path rate limit wait", err)
		}
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if err := inst.be.ExecutionPath(ctx, inst.data, path); err != nil {
		return err
	}
	inst.searchPaths = append(inst.searchPaths, path)
	return nil
}

// SearchPaths returns a snapshot of the configured execution paths.
func (inst *Instance) SearchPaths() []string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return append([]string(nil), inst.searchPaths...)
}

// loadAndDiscover runs the common tail of every load_from_* operation:
// discover the handle's symbols into the instance's context, attach inst
// as the owner of every discovered function, then track the handle for
// later Clear/Destroy.
func (inst *Instance) loadAndDiscover(ctx context.Context, h *handle.Handle) (*handle.Handle, error) {
	if err := inst.be.Discover(ctx, inst.data, h, inst.ctx.Root()); err != nil {
		return nil, ferr.Wrap(ferr.BackendError, "discover", err)
	}
	for _, name := range h.Names() {
		v, ok := inst.ctx.Root().Get(name)
		if !ok {
			continue
		}
		if c, err := v.ToCallable(); err == nil {
			if fn, ok := c.(*function.Function); ok {
				fn.SetOwner(inst)
			}
		}
	}
	inst.handles[h.ID()] = h
	inst.handleOrder = append(inst.handleOrder, h.ID())
	return h, nil
}

// LoadFromFile asks the backend to resolve and load paths, then discovers
// the resulting handle's symbols.
func (inst *Instance) LoadFromFile(ctx context.Context, paths []string) (*handle.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	h, err := inst.be.LoadFromFile(ctx, inst.data, paths)
	if err != nil {
		return nil, err
	}
	return inst.loadAndDiscover(ctx, h)
}

// LoadFromMemory asks the backend to load an in-memory buffer.
func (inst *Instance) LoadFromMemory(ctx context.Context, name string, buf []byte) (*handle.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	h, err := inst.be.LoadFromMemory(ctx, inst.data, name, buf)
	if err != nil {
		return nil, err
	}
	return inst.loadAndDiscover(ctx, h)
}

// LoadFromPackage asks the backend to load a packaged module.
func (inst *Instance) LoadFromPackage(ctx context.Context, path string) (*handle.Handle, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	h, err := inst.be.LoadFromPackage(ctx, inst.data, path)
	if err != nil {
		return nil, err
	}
	return inst.loadAndDiscover(ctx, h)
}

// Clear unloads h: the backend releases its private state and h's
// introduced names are removed from (or drained out of) the instance's
// context.
func (inst *Instance) Clear(ctx context.Context, id handle.ID) error {
	inst.mu.Lock()
	h, ok := inst.handles[id]
	if !ok {
		inst.mu.Unlock()
		return ferr.Newf(ferr.NotFound, "no handle %s on loader %q", id, inst.tag)
	}
	delete(inst.handles, id)
	for i, hid := range inst.handleOrder {
		if hid == id {
			inst.handleOrder = append(inst.handleOrder[:i], inst.handleOrder[i+1:]...)
			break
		}
	}
	inst.mu.Unlock()

	if err := inst.be.Clear(ctx, inst.data, h); err != nil {
		return ferr.Wrap(ferr.BackendError, "backend clear", err)
	}
	h.Clear(inst.ctx.Root())
	return nil
}

// Destroy tears the instance down: unload children (the most-recently
// created handles) before parents, destroy the backend's private data
// last, and destroy the type registry only after the backend, since type
// destructors may depend on backend state.
func (inst *Instance) Destroy(ctx context.Context) []error {
	inst.mu.Lock()
	if inst.destroyed {
		inst.mu.Unlock()
		return nil
	}
	inst.destroyed = true
	order := append([]handle.ID(nil), inst.handleOrder...)
	inst.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if err := inst.Clear(ctx, order[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if err := inst.be.Destroy(ctx, inst.data); err != nil {
		errs = append(errs, ferr.Wrap(ferr.BackendError, "destroy backend", err))
	}

	errs = append(errs, inst.types.DestroyAll()...)
	return errs
}

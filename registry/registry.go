// Package registry implements the process-wide loader registry: a map
// from tag to loader instance, symbol resolution across them, and orderly
// teardown in reverse initialization order.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/polyrt/ffi/backend"
	"github.com/polyrt/ffi/backends/host"
	"github.com/polyrt/ffi/config"
	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/function"
	"github.com/polyrt/ffi/handle"
	"github.com/polyrt/ffi/loader"
	"github.com/polyrt/ffi/telemetry"
	"github.com/polyrt/ffi/value"
)

// SourceKind discriminates the three load_from_* variants a Source can
// carry.
type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceMemory
	SourcePackage
)

// Source is the tagged union of arguments the three load_from_* backend
// operations take.
type Source struct {
	Kind SourceKind

	Paths []string // SourceFile

	Name   string // SourceMemory
	Buffer []byte // SourceMemory

	Path string // SourcePackage
}

// Registry is the process-wide map from tag to loader instance, plus the
// reserved host-proxy slot. Registry is the single genuinely shared
// mutable structure in the system; every loader instance it owns
// serializes its own state independently (see loader.Instance).
type Registry struct {
	mu sync.Mutex

	loaders     map[string]*loader.Instance
	order       []string // successful-initialization order, for reverse teardown
	initialized map[string]bool

	idOwner map[handle.ID]string

	factories map[string]backend.Factory // tag -> factory, for LoadConfig

	hostBackend *host.Backend
	obs         *telemetry.Observability
}

// Option configures a new Registry.
type Option func(*Registry)

// WithObservability attaches structured logging/metrics/tracing.
func WithObservability(obs *telemetry.Observability) Option {
	return func(r *Registry) { r.obs = obs }
}

// New constructs a Registry with its host-proxy loader already registered
// and initialized.
func New(ctx context.Context, opts ...Option) (*Registry, error) {
	r := &Registry{
		loaders:     make(map[string]*loader.Instance),
		initialized: make(map[string]bool),
		idOwner:     make(map[handle.ID]string),
		factories:   make(map[string]backend.Factory),
		hostBackend: host.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.obs == nil {
		r.obs = telemetry.NewObservability(nil, nil, nil)
	}

	inst, err := loader.New(ctx, host.Tag, r.hostBackend, loader.WithObservability(r.obs))
	if err != nil {
		return nil, ferr.Wrap(ferr.BackendError, "initialize host-proxy loader", err)
	}
	r.loaders[host.Tag] = inst
	r.order = append(r.order, host.Tag)
	r.initialized[host.Tag] = true
	return r, nil
}

// RegisterBackend constructs and initializes a loader instance for tag.
// A backend whose Initialize step succeeds is appended to the initialized
// list before this call returns, per §4.8's gating rule: no symbol it
// publishes can resolve before that.
func (r *Registry) RegisterBackend(ctx context.Context, tag string, factory backend.Factory, opts ...loader.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tag == host.Tag {
		return ferr.Newf(ferr.NameCollision, "tag %q is reserved for the host-proxy loader", tag)
	}
	if _, exists := r.loaders[tag]; exists {
		return ferr.Newf(ferr.NameCollision, "loader %q already registered", tag)
	}

	opts = append(opts, loader.WithObservability(r.obs))
	inst, err := loader.New(ctx, tag, factory(), opts...)
	if err != nil {
		r.obs.Logger.Error(ctx, "backend initialize failed", "tag", tag, "error", err.Error())
		return err
	}

	r.loaders[tag] = inst
	r.order = append(r.order, tag)
	r.initialized[tag] = true
	r.obs.Logger.Info(ctx, "backend registered", "tag", tag)
	return nil
}

// RegisterFactory makes factory available under tag for later use by
// LoadConfig, without itself constructing or initializing a loader
// instance. RegisterBackend remains the entry point for callers that want
// a tag initialized immediately.
func (r *Registry) RegisterFactory(tag string, factory backend.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = factory
}

// LoadConfig drives a configuration file's load/discover sequence end to
// end, per spec.md §6: dependencies are registered, have their execution
// paths applied, and are loaded and discovered fully before the dependent
// configuration is, in cfg.Sources()'s order. A backend tag not already
// registered must have a factory registered for it via RegisterFactory (or
// RegisterBackend), or LoadConfig fails with not-found.
func (r *Registry) LoadConfig(ctx context.Context, cfg *config.Config) ([]*handle.Handle, error) {
	var handles []*handle.Handle
	for _, src := range cfg.Sources() {
		r.mu.Lock()
		_, ok := r.loaders[src.Tag]
		r.mu.Unlock()

		if !ok {
			r.mu.Lock()
			factory, known := r.factories[src.Tag]
			r.mu.Unlock()
			if !known {
				return handles, ferr.Newf(ferr.NotFound, "no backend factory registered for language %q", src.Tag)
			}
			if err := r.RegisterBackend(ctx, src.Tag, factory); err != nil {
				return handles, err
			}
		}

		r.mu.Lock()
		inst := r.loaders[src.Tag]
		r.mu.Unlock()
		for _, p := range src.ExecutionPaths {
			if err := inst.ExecutionPath(ctx, p); err != nil {
				return handles, err
			}
		}

		if len(src.Scripts) == 0 {
			continue
		}
		h, err := r.Load(ctx, src.Tag, Source{Kind: SourceFile, Paths: src.Scripts})
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// RegisterHostFunction injects a host-supplied callable into the
// host-proxy loader, per §4.9.
func (r *Registry) RegisterHostFunction(ctx context.Context, name string, impl host.Impl, sig *function.Signature) error {
	if err := r.hostBackend.Register(name, impl, sig); err != nil {
		return err
	}
	r.mu.Lock()
	inst := r.loaders[host.Tag]
	r.mu.Unlock()

	h, err := inst.LoadFromPackage(ctx, "")
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.idOwner[h.ID()] = host.Tag
	r.mu.Unlock()
	return nil
}

// Load routes src to the appropriate load_from_* operation on the loader
// instance registered for tag.
func (r *Registry) Load(ctx context.Context, tag string, src Source) (*handle.Handle, error) {
	r.mu.Lock()
	inst, ok := r.loaders[tag]
	initialized := r.initialized[tag]
	r.mu.Unlock()

	if !ok || !initialized {
		return nil, ferr.Newf(ferr.NotFound, "no initialized loader for tag %q", tag)
	}

	var h *handle.Handle
	var err error
	switch src.Kind {
	case SourceFile:
		h, err = inst.LoadFromFile(ctx, src.Paths)
	case SourceMemory:
		h, err = inst.LoadFromMemory(ctx, src.Name, src.Buffer)
	case SourcePackage:
		h, err = inst.LoadFromPackage(ctx, src.Path)
	default:
		return nil, ferr.New(ferr.SignatureMismatch, "unknown source kind")
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.idOwner[h.ID()] = tag
	r.mu.Unlock()
	return h, nil
}

// Unload clears h through its owning loader instance.
func (r *Registry) Unload(ctx context.Context, h *handle.Handle) error {
	r.mu.Lock()
	tag, ok := r.idOwner[h.ID()]
	if !ok {
		r.mu.Unlock()
		return ferr.New(ferr.NotFound, "handle is not owned by this registry")
	}
	inst := r.loaders[tag]
	delete(r.idOwner, h.ID())
	r.mu.Unlock()

	return inst.Clear(ctx, h.ID())
}

// resolutionOrder returns loader tags in the priority order §4.8
// specifies: the host-proxy first, then every other loader in insertion
// order.
func (r *Registry) resolutionOrder() []string {
	out := make([]string, 0, len(r.order))
	out = append(out, host.Tag)
	for _, tag := range r.order {
		if tag != host.Tag {
			out = append(out, tag)
		}
	}
	return out
}

// Invoke resolves name across initialized loaders (host-proxy first, then
// insertion order) and calls it with args. If name resolves to bindings
// with incompatible signatures across loaders, resolution fails with
// ambiguous. An absent symbol returns a null value alongside a
// not-found error — never a crash.
func (r *Registry) Invoke(ctx context.Context, name string, args []*value.Value) (*value.Value, error) {
	start := time.Now()
	r.mu.Lock()
	order := r.resolutionOrder()
	r.mu.Unlock()

	var winner *function.Function
	for _, tag := range order {
		r.mu.Lock()
		inst, ok := r.loaders[tag]
		initialized := r.initialized[tag]
		r.mu.Unlock()
		if !ok || !initialized {
			continue
		}

		v, ok := inst.Context().Root().Get(name)
		if !ok {
			continue
		}
		callable, err := v.ToCallable()
		if err != nil {
			continue
		}
		fn, ok := callable.(*function.Function)
		if !ok {
			continue
		}

		if winner == nil {
			winner = fn
			continue
		}
		if !function.Equivalent(winner.Signature(), fn.Signature()) {
			r.obs.Metrics.IncCounter("registry_invoke_ambiguous", 1, "name", name)
			return nil, ferr.Newf(ferr.Ambiguous, "name %q resolves to incompatible bindings across loaders", name)
		}
	}

	if winner == nil {
		return value.NewNull(), ferr.Newf(ferr.NotFound, "no symbol named %q is resolvable", name)
	}

	out, err := winner.Invoke(args)
	r.obs.Metrics.RecordTimer("registry_invoke_duration", time.Since(start), "name", name)
	if err != nil {
		r.obs.Logger.Warn(ctx, "invoke failed", "name", name, "error", err.Error())
		return nil, err
	}
	return out, nil
}

// Destroy tears every registered loader down in reverse initialization
// order, per §4.7/§4.8.
func (r *Registry) Destroy(ctx context.Context) []error {
	r.mu.Lock()
	order := append([]string(nil), r.order...)
	r.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		tag := order[i]
		r.mu.Lock()
		inst := r.loaders[tag]
		delete(r.loaders, tag)
		delete(r.initialized, tag)
		r.mu.Unlock()

		if inst == nil {
			continue
		}
		errs = append(errs, inst.Destroy(ctx)...)
	}
	r.mu.Lock()
	r.order = nil
	r.mu.Unlock()
	return errs
}

// Package function implements signatures and callable functions: the
// uniform invoke/await shim over a backend-provided function body.
package function

import (
	"sync"

	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/types"
	"github.com/polyrt/ffi/value"
)

// Param is one (name, type-reference) pair of a Signature. TypeName is
// resolved lazily against a types.Registry; an empty TypeName means
// unresolved, matching the "none" case in signature_set_parameter.
type Param struct {
	Name     string
	TypeName string
}

// Signature is an ordered sequence of parameters plus a return
// type-reference. Construction never fails on a missing type: resolution
// only matters at type-checked invocation time.
type Signature struct {
	mu     sync.Mutex
	params []Param
	ret    string
}

// NewSignature preallocates a signature for a fixed arity. Use a negative
// arity for a variadic/backend-determined function.
func NewSignature(arity int) *Signature {
	if arity < 0 {
		return &Signature{}
	}
	return &Signature{params: make([]Param, arity)}
}

// Arity returns the number of parameter slots, or -1 if variadic.
func (s *Signature) Arity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.params == nil {
		return -1
	}
	return len(s.params)
}

// SetParameter is an idempotent writer: calling it again for the same
// index simply overwrites the prior (name, type) pair. Passing an empty
// typeName leaves the parameter unresolved.
func (s *Signature) SetParameter(index int, name, typeName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.params) {
		return ferr.Newf(ferr.SignatureMismatch, "parameter index %d out of range [0,%d)", index, len(s.params))
	}
	s.params[index] = Param{Name: name, TypeName: typeName}
	return nil
}

// SetReturn is an idempotent writer for the return type-reference. Passing
// an empty typeName leaves it unresolved.
func (s *Signature) SetReturn(typeName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ret = typeName
}

// Parameters returns a copy of the current parameter list.
func (s *Signature) Parameters() []Param {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

// Return returns the current return type-reference, or "" if unresolved.
func (s *Signature) Return() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ret
}

// ResolveTypes looks every parameter and return type-reference up against
// reg, for type-checked invocation. Unresolved ("") entries are skipped
// without error; a named-but-missing type is reported per entry.
func (s *Signature) ResolveTypes(reg *types.Registry) (params []*types.Type, ret *types.Type, missing []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params = make([]*types.Type, len(s.params))
	for i, p := range s.params {
		if p.TypeName == "" {
			continue
		}
		t, ok := reg.Lookup(p.TypeName)
		if !ok {
			missing = append(missing, p.TypeName)
			continue
		}
		params[i] = t
	}
	if s.ret != "" {
		if t, ok := reg.Lookup(s.ret); ok {
			ret = t
		} else {
			missing = append(missing, s.ret)
		}
	}
	return params, ret, missing
}

// equivalentTo implements the structural-equivalence rule scope/context
// merge needs for functions: same arity, pairwise equal parameter types
// (by name), and equal return type (by name).
func (s *Signature) equivalentTo(other *Signature) bool {
	s.mu.Lock()
	a := make([]Param, len(s.params))
	copy(a, s.params)
	aret := s.ret
	s.mu.Unlock()

	other.mu.Lock()
	b := make([]Param, len(other.params))
	copy(b, other.params)
	bret := other.ret
	other.mu.Unlock()

	if len(a) != len(b) || aret != bret {
		return false
	}
	for i := range a {
		if a[i].TypeName != b[i].TypeName {
			return false
		}
	}
	return true
}

// Equivalent reports whether a and b are structurally equivalent
// signatures, per §4.4's context-merge rule.
func Equivalent(a, b *Signature) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.equivalentTo(b)
}

// DispatchTable is the set of backend-supplied hooks every Function
// produced by that backend shares. Backends hand these out as
// process-lifetime singletons; a Function only ever holds a pointer into
// one, never a copy.
type DispatchTable struct {
	// Create is invoked exactly once, lazily, the first time a Function is
	// invoked. It may be nil.
	Create func(fn *Function) error

	// Invoke runs the function body synchronously. Required.
	Invoke func(fn *Function, args []*value.Value) (*value.Value, error)

	// Await schedules an asynchronous invocation. Nil means the backend
	// does not support await.
	Await func(fn *Function, args []*value.Value, resolve func(*value.Value), reject func(error), ctx any) error

	// Destroy releases any backend-private state attached to fn. May be nil.
	Destroy func(fn *Function) error
}

// Owner is the minimal view of a loader instance a Function needs for its
// weak back reference; it exists to avoid an import cycle with the loader
// package, which itself depends on function.
type Owner interface {
	Tag() string
}

// Function is a callable value: a name, a signature, an opaque backend
// implementation pointer, a shared dispatch table, and a non-owning
// reference to the loader instance that produced it.
type Function struct {
	mu sync.Mutex

	name        string
	sig         *Signature
	backendImpl any
	dispatch    *DispatchTable
	owner       Owner

	created   bool
	destroyed bool
}

// Create allocates a Function. Allocation is all-or-nothing: a nil
// dispatch table or missing Invoke hook fails the call and returns no
// partially-built Function.
func Create(name string, sig *Signature, backendImpl any, dispatch *DispatchTable) (*Function, error) {
	if dispatch == nil || dispatch.Invoke == nil {
		return nil, ferr.New(ferr.SignatureMismatch, "function dispatch table must supply Invoke")
	}
	if sig == nil {
		sig = NewSignature(-1)
	}
	return &Function{name: name, sig: sig, backendImpl: backendImpl, dispatch: dispatch}, nil
}

// SetOwner attaches the non-owning back reference to the loader instance
// that produced fn. Called by the loader instance during discovery.
func (fn *Function) SetOwner(owner Owner) {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	fn.owner = owner
}

// Owner returns the loader instance that produced fn, or nil.
func (fn *Function) Owner() Owner {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return fn.owner
}

func (fn *Function) Name() string          { return fn.name }
func (fn *Function) Signature() *Signature { return fn.sig }
func (fn *Function) BackendImpl() any      { return fn.backendImpl }

// ensureCreated runs the dispatch table's Create hook exactly once, the
// first time the function is invoked or awaited.
func (fn *Function) ensureCreated() error {
	fn.mu.Lock()
	if fn.created || fn.dispatch.Create == nil {
		fn.created = true
		fn.mu.Unlock()
		return nil
	}
	fn.created = true
	fn.mu.Unlock()
	return fn.dispatch.Create(fn)
}

func (fn *Function) checkArity(n int) error {
	arity := fn.sig.Arity()
	if arity >= 0 && n != arity {
		return ferr.Newf(ferr.SignatureMismatch, "function %q expects %d arguments, got %d", fn.name, arity, n)
	}
	return nil
}

// Invoke runs fn synchronously. It does not coerce argument types; a
// backend that wants coercion does so inside its Create hook. If the
// signature declares a fixed arity and the call mismatches it, Invoke
// fails with signature-mismatch and returns no value.
func (fn *Function) Invoke(args []*value.Value) (*value.Value, error) {
	if err := fn.checkArity(len(args)); err != nil {
		return nil, err
	}
	if err := fn.ensureCreated(); err != nil {
		return nil, ferr.Wrap(ferr.BackendError, "function create hook", err)
	}
	return fn.dispatch.Invoke(fn, args)
}

// Await schedules an asynchronous invocation. Exactly one of resolve or
// reject fires, at most once, regardless of what the backend does
// internally; ctx is passed through verbatim. Fails with not-supported if
// the backend's dispatch table has no Await hook.
func (fn *Function) Await(args []*value.Value, resolve func(*value.Value), reject func(error), ctx any) error {
	if fn.dispatch.Await == nil {
		return ferr.Newf(ferr.NotSupported, "function %q backend does not support await", fn.name)
	}
	if err := fn.checkArity(len(args)); err != nil {
		return err
	}
	if err := fn.ensureCreated(); err != nil {
		return ferr.Wrap(ferr.BackendError, "function create hook", err)
	}

	var once sync.Once
	guardedResolve := func(v *value.Value) {
		once.Do(func() { resolve(v) })
	}
	guardedReject := func(err error) {
		once.Do(func() { reject(err) })
	}
	return fn.dispatch.Await(fn, args, guardedResolve, guardedReject, ctx)
}

// Destroy releases backend-private state attached to fn exactly once.
func (fn *Function) Destroy() error {
	fn.mu.Lock()
	if fn.destroyed {
		fn.mu.Unlock()
		return nil
	}
	fn.destroyed = true
	fn.mu.Unlock()

	if fn.dispatch.Destroy == nil {
		return nil
	}
	return fn.dispatch.Destroy(fn)
}

// Invoke implements value.Callable so a Function can back a Function-kind
// value.Value directly.
var _ value.Callable = (*Function)(nil)

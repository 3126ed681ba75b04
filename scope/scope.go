// Package scope implements named bindings for values published by a
// loaded module, and the hierarchical context merge that composes them.
package scope

import (
	"sync"

	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/function"
	"github.com/polyrt/ffi/value"
)

// Scope maps names, unique within the scope, to values.
type Scope struct {
	mu   sync.Mutex
	vals map[string]*value.Value
}

// New constructs an empty Scope.
func New() *Scope {
	return &Scope{vals: make(map[string]*value.Value)}
}

// Define binds name to v. A duplicate name fails with name-collision and
// the supplied value is not taken (the caller still owns it).
func (s *Scope) Define(name string, v *value.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vals[name]; exists {
		return ferr.Newf(ferr.NameCollision, "name %q already defined in scope", name)
	}
	s.vals[name] = v
	return nil
}

// Get returns the value bound to name, or (nil, false).
func (s *Scope) Get(name string) (*value.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[name]
	return v, ok
}

// Remove unbinds name, returning the removed value (or nil if it was not
// bound).
func (s *Scope) Remove(name string) *value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[name]
	if !ok {
		return nil
	}
	delete(s.vals, name)
	return v
}

// Names returns a snapshot of the currently bound names.
func (s *Scope) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.vals))
	for n := range s.vals {
		out = append(out, n)
	}
	return out
}

// Len returns the number of bound names.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vals)
}

// Context is the symbol root of one loaded module: a root scope plus
// merge bookkeeping. Contexts compose: Merge absorbs another context's
// bindings into this one, atomically.
type Context struct {
	mu       sync.Mutex
	root     *Scope
	mergedIn int // count of successful merges, for diagnostics
}

// NewContext constructs an empty Context.
func NewContext() *Context {
	return &Context{root: New()}
}

// Root returns the context's root scope.
func (c *Context) Root() *Scope {
	return c.root
}

// structurallyEquivalent reports whether a and b satisfy §4.4's
// equivalence rule: same type id, and for functions the same signature.
func structurallyEquivalent(a, b *value.Value) bool {
	if a.TypeID() != b.TypeID() {
		return false
	}
	if a.TypeID() != value.Function {
		return true
	}
	ca, err := a.ToCallable()
	if err != nil {
		return false
	}
	cb, err := b.ToCallable()
	if err != nil {
		return false
	}
	fa, aok := ca.(*function.Function)
	fb, bok := cb.(*function.Function)
	if !aok || !bok {
		return false
	}
	return function.Equivalent(fa.Signature(), fb.Signature())
}

// Merge absorbs other's bindings into c, producing the union of names.
// For every name present in both, the two values must be structurally
// equivalent or the whole merge aborts without side effect on c.
func (c *Context) Merge(other *Context) error {
	other.root.mu.Lock()
	incoming := make(map[string]*value.Value, len(other.root.vals))
	for n, v := range other.root.vals {
		incoming[n] = v
	}
	other.root.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.root.mu.Lock()
	defer c.root.mu.Unlock()

	for name, v := range incoming {
		if existing, ok := c.root.vals[name]; ok {
			if !structurallyEquivalent(existing, v) {
				return ferr.Newf(ferr.NameCollision, "merge conflict on name %q: incompatible bindings", name)
			}
		}
	}

	for name, v := range incoming {
		if _, ok := c.root.vals[name]; !ok {
			c.root.vals[name] = v
		}
	}
	c.mergedIn++
	return nil
}

// MergeCount returns how many merges have succeeded against c.
func (c *Context) MergeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mergedIn
}

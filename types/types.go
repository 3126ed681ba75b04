// Package types implements the per-loader type registry: named,
// closed-id type descriptors optionally carrying construct/destruct hooks
// and a language-specific opaque descriptor.
package types

import (
	"github.com/polyrt/ffi/ferr"
	"github.com/polyrt/ffi/value"
)

// ConstructFunc is invoked when a backend constructs a value of a class
// Type; DestructFunc when such a value is destroyed. Both are optional.
type (
	ConstructFunc func(args []*value.Value) (*value.Value, error)
	DestructFunc  func(v *value.Value) error
)

// Type is a named description of a domain of values, owned by exactly one
// loader instance's Registry. Two Types with the same id may coexist if
// they have distinct names; two Types may never share a name within the
// same Registry.
type Type struct {
	id         value.Kind
	name       string
	construct  ConstructFunc
	destruct   DestructFunc
	descriptor any // language-specific opaque pointer, backend-owned

	// schema, when non-nil, is a compiled JSON Schema validated against the
	// field map of any Object value constructed against this Type. Only
	// meaningful for id == value.Class / value.Object.
	schema Schema
}

// Schema validates a candidate field map against a type's declared shape.
// *schemaValidator (jsonschema.go) implements this against a compiled
// github.com/santhosh-tekuri/jsonschema/v6 schema; it is an interface here
// so tests can supply a stub without compiling a real schema document.
type Schema interface {
	Validate(fields map[string]*value.Value) error
}

// Option configures a new Type at definition time.
type Option func(*Type)

// WithConstructor attaches a construct hook.
func WithConstructor(fn ConstructFunc) Option { return func(t *Type) { t.construct = fn } }

// WithDestructor attaches a destruct hook.
func WithDestructor(fn DestructFunc) Option { return func(t *Type) { t.destruct = fn } }

// WithDescriptor attaches a language-specific opaque descriptor.
func WithDescriptor(d any) Option { return func(t *Type) { t.descriptor = d } }

// WithSchema attaches a validation schema for class/object types.
func WithSchema(s Schema) Option { return func(t *Type) { t.schema = s } }

// New constructs a Type. It does not register it; use Registry.Define.
func New(id value.Kind, name string, opts ...Option) *Type {
	t := &Type{id: id, name: name}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TypeName implements value.TypeRef.
func (t *Type) TypeName() string { return t.name }

// TypeID implements value.TypeRef.
func (t *Type) TypeID() value.Kind { return t.id }

// Descriptor returns the language-specific opaque descriptor, if any.
func (t *Type) Descriptor() any { return t.descriptor }

// Construct invokes the type's construct hook and, when the result is an
// Object and the type has a schema, validates the result's fields against
// it before returning. A type without a construct hook fails with
// not-supported.
func (t *Type) Construct(args []*value.Value) (*value.Value, error) {
	if t.construct == nil {
		return nil, ferr.Newf(ferr.NotSupported, "type %q has no constructor", t.name)
	}
	v, err := t.construct(args)
	if err != nil {
		return nil, err
	}
	if fields, kindErr := v.ToFields(); kindErr == nil {
		if err := t.ValidateFields(fields); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Destruct invokes the type's destruct hook, if set.
func (t *Type) Destruct(v *value.Value) error {
	if t.destruct == nil {
		return nil
	}
	return t.destruct(v)
}

// ValidateFields runs the type's schema (if any) against fields.
func (t *Type) ValidateFields(fields map[string]*value.Value) error {
	if t.schema == nil {
		return nil
	}
	return t.schema.Validate(fields)
}

// Registry holds the named types owned by one loader instance. Registry is
// not safe for concurrent use by itself; loader.Instance serializes access
// to it as part of its own per-instance mutual-exclusion region.
type Registry struct {
	byName map[string]*Type
	order  []string // definition order, for reverse-order destructor teardown
}

// NewRegistry constructs an empty type registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Type)}
}

// Define registers name -> t. Defining a name that already exists is an
// error (never an overwrite).
func (r *Registry) Define(name string, t *Type) error {
	if _, exists := r.byName[name]; exists {
		return ferr.Newf(ferr.NameCollision, "type %q already defined", name)
	}
	r.byName[name] = t
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the type registered under name, or (nil, false).
func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Remove unregisters name, returning false if it was not registered.
func (r *Registry) Remove(name string) bool {
	if _, ok := r.byName[name]; !ok {
		return false
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of currently registered types.
func (r *Registry) Len() int { return len(r.byName) }

// DestroyAll invokes every still-registered type's destructor hook exactly
// once, in reverse definition order, then clears the registry. Intended for
// loader instance teardown.
func (r *Registry) DestroyAll() []error {
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		t := r.byName[name]
		if t.destruct != nil {
			if err := t.destruct(nil); err != nil {
				errs = append(errs, ferr.Wrap(ferr.BackendError, "destructor for type "+name, err))
			}
		}
	}
	r.byName = make(map[string]*Type)
	r.order = nil
	return errs
}

// Package value implements the tagged, self-describing value cells that
// cross the host/guest boundary: bool, char, short, int, long, float,
// double, string, buffer, array, map, pointer, future, function, null,
// class, object, exception, throwable.
//
// A Value's Kind never changes after construction. Cast produces a new
// Value and consumes the source; Destroy is idempotent and, for
// containers, recursive.
package value

import (
	"fmt"
	"sync"

	"github.com/polyrt/ffi/ferr"
)

// TypeRef is the minimal view of a types.Type that a Value needs: its name
// and id. Defined here (rather than importing package types) so that types
// can depend on value for its construct/destruct hook signatures without a
// import cycle back the other way.
type TypeRef interface {
	TypeName() string
	TypeID() Kind

	// ValidateFields runs the type's schema (if any) against a candidate
	// Object field map, returning nil when the type carries no schema.
	ValidateFields(fields map[string]*Value) error
}

// Callable is the minimal view of a function.Function a Function-kind Value
// needs to be invoked. function.Function implements this.
type Callable interface {
	Invoke(args []*Value) (*Value, error)
}

// MapEntry is one key/value pair inside a Map value. Order is preserved.
type MapEntry struct {
	Key *Value
	Val *Value
}

// ExceptionInfo is the payload of an Exception or Throwable value.
type ExceptionInfo struct {
	Message string
	Code    int
	Cause   *Value
}

// Value is a tagged, self-describing cell. The zero Value is not valid;
// use one of the New* constructors.
type Value struct {
	mu        sync.Mutex
	kind      Kind
	payload   any
	typ       TypeRef
	destroyed bool
}

func newValue(kind Kind, payload any, typ TypeRef) *Value {
	return &Value{kind: kind, payload: payload, typ: typ}
}

// NewBool constructs a Bool value.
func NewBool(b bool) *Value { return newValue(Bool, b, nil) }

// NewChar constructs a Char value. Char is a single byte; callers that need
// narrowing from a wider integer should use Cast instead of truncating
// themselves, so the truncation rule lives in one place.
func NewChar(c byte) *Value { return newValue(Char, c, nil) }

// NewShort constructs a Short (int16) value.
func NewShort(s int16) *Value { return newValue(Short, s, nil) }

// NewInt constructs an Int (int32) value.
func NewInt(i int32) *Value { return newValue(Int, i, nil) }

// NewLong constructs a Long (int64) value.
func NewLong(l int64) *Value { return newValue(Long, l, nil) }

// NewFloat constructs a Float (float32) value.
func NewFloat(f float32) *Value { return newValue(Float, f, nil) }

// NewDouble constructs a Double (float64) value.
func NewDouble(d float64) *Value { return newValue(Double, d, nil) }

// NewString constructs a String value.
func NewString(s string) *Value { return newValue(String, s, nil) }

// NewBuffer constructs a Buffer value. The byte slice is owned by the
// returned Value; callers must not mutate it afterwards.
func NewBuffer(b []byte) *Value { return newValue(Buffer, b, nil) }

// NewArray constructs an Array value. The Array owns every element and
// destroys them when it is itself destroyed.
func NewArray(elems []*Value) *Value { return newValue(Array, elems, nil) }

// NewMap constructs a Map value. The Map owns every entry's key and value.
func NewMap(entries []MapEntry) *Value { return newValue(Map, entries, nil) }

// NewPointer constructs an opaque Pointer value wrapping an arbitrary
// language-specific descriptor.
func NewPointer(p any) *Value { return newValue(Pointer, p, nil) }

// NewFunction constructs a Function value wrapping a Callable.
func NewFunction(c Callable) *Value { return newValue(Function, c, nil) }

// NewNull constructs the Null value.
func NewNull() *Value { return newValue(Null, nil, nil) }

// NewClass constructs a Class value describing a domain of Object values.
// typ is required.
func NewClass(typ TypeRef) (*Value, error) {
	if typ == nil {
		return nil, ferr.New(ferr.OutOfMemory, "class value requires a type reference")
	}
	return newValue(Class, nil, typ), nil
}

// NewObject constructs an Object value. typ is required; fields holds the
// instance's named members and is owned by the returned Value.
func NewObject(typ TypeRef, fields map[string]*Value) (*Value, error) {
	if typ == nil {
		return nil, ferr.New(ferr.OutOfMemory, "object value requires a type reference")
	}
	if fields == nil {
		fields = map[string]*Value{}
	}
	if err := typ.ValidateFields(fields); err != nil {
		return nil, err
	}
	return newValue(Object, fields, typ), nil
}

// NewException constructs an Exception value.
func NewException(info ExceptionInfo) *Value { return newValue(Exception, info, nil) }

// NewThrowable constructs a Throwable value.
func NewThrowable(info ExceptionInfo) *Value { return newValue(Throwable, info, nil) }

// TypeID returns the Kind of v. It is safe to call on a destroyed value.
func (v *Value) TypeID() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

// Type returns the owning type descriptor, if any (set for Class/Object).
func (v *Value) Type() TypeRef {
	if v == nil {
		return nil
	}
	return v.typ
}

func (v *Value) checkKind(k Kind) error {
	if v == nil {
		return ferr.New(ferr.SignatureMismatch, "nil value")
	}
	if v.kind != k {
		return ferr.Newf(ferr.SignatureMismatch, "value is %s, not %s", v.kind, k)
	}
	return nil
}

// ToBool returns the payload of a Bool value.
func (v *Value) ToBool() (bool, error) {
	if err := v.checkKind(Bool); err != nil {
		return false, err
	}
	return v.payload.(bool), nil
}

// ToChar returns the payload of a Char value.
func (v *Value) ToChar() (byte, error) {
	if err := v.checkKind(Char); err != nil {
		return 0, err
	}
	return v.payload.(byte), nil
}

// ToShort returns the payload of a Short value.
func (v *Value) ToShort() (int16, error) {
	if err := v.checkKind(Short); err != nil {
		return 0, err
	}
	return v.payload.(int16), nil
}

// ToInt returns the payload of an Int value.
func (v *Value) ToInt() (int32, error) {
	if err := v.checkKind(Int); err != nil {
		return 0, err
	}
	return v.payload.(int32), nil
}

// ToLong returns the payload of a Long value.
func (v *Value) ToLong() (int64, error) {
	if err := v.checkKind(Long); err != nil {
		return 0, err
	}
	return v.payload.(int64), nil
}

// ToFloat returns the payload of a Float value.
func (v *Value) ToFloat() (float32, error) {
	if err := v.checkKind(Float); err != nil {
		return 0, err
	}
	return v.payload.(float32), nil
}

// ToDouble returns the payload of a Double value.
func (v *Value) ToDouble() (float64, error) {
	if err := v.checkKind(Double); err != nil {
		return 0, err
	}
	return v.payload.(float64), nil
}

// ToString returns the payload of a String value.
func (v *Value) ToString() (string, error) {
	if err := v.checkKind(String); err != nil {
		return "", err
	}
	return v.payload.(string), nil
}

// ToBuffer returns the payload of a Buffer value.
func (v *Value) ToBuffer() ([]byte, error) {
	if err := v.checkKind(Buffer); err != nil {
		return nil, err
	}
	return v.payload.([]byte), nil
}

// ToArray returns the element slice of an Array value. The slice is owned
// by v; callers must not destroy individual elements directly.
func (v *Value) ToArray() ([]*Value, error) {
	if err := v.checkKind(Array); err != nil {
		return nil, err
	}
	return v.payload.([]*Value), nil
}

// ToMap returns the entries of a Map value.
func (v *Value) ToMap() ([]MapEntry, error) {
	if err := v.checkKind(Map); err != nil {
		return nil, err
	}
	return v.payload.([]MapEntry), nil
}

// ToPointer returns the opaque payload of a Pointer value.
func (v *Value) ToPointer() (any, error) {
	if err := v.checkKind(Pointer); err != nil {
		return nil, err
	}
	return v.payload, nil
}

// ToCallable returns the Callable backing a Function value.
func (v *Value) ToCallable() (Callable, error) {
	if err := v.checkKind(Function); err != nil {
		return nil, err
	}
	return v.payload.(Callable), nil
}

// ToFields returns the member map of an Object value.
func (v *Value) ToFields() (map[string]*Value, error) {
	if err := v.checkKind(Object); err != nil {
		return nil, err
	}
	return v.payload.(map[string]*Value), nil
}

// ToException returns the ExceptionInfo of an Exception or Throwable value.
func (v *Value) ToException() (ExceptionInfo, error) {
	if v == nil || (v.kind != Exception && v.kind != Throwable) {
		return ExceptionInfo{}, ferr.New(ferr.SignatureMismatch, "value is not exception/throwable")
	}
	return v.payload.(ExceptionInfo), nil
}

// Destroy releases v and, for containers, every element it owns. Destroy is
// idempotent: a second call on the same Value (or on Null) is a no-op.
func (v *Value) Destroy() {
	if v == nil {
		return
	}
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	payload := v.payload
	kind := v.kind
	v.mu.Unlock()

	switch kind {
	case Array:
		for _, e := range payload.([]*Value) {
			e.Destroy()
		}
	case Map:
		for _, e := range payload.([]MapEntry) {
			e.Key.Destroy()
			e.Val.Destroy()
		}
	case Object:
		for _, f := range payload.(map[string]*Value) {
			f.Destroy()
		}
	case Exception, Throwable:
		info := payload.(ExceptionInfo)
		info.Cause.Destroy()
	}
}

// IsDestroyed reports whether v has already been destroyed.
func (v *Value) IsDestroyed() bool {
	if v == nil {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

// Copy performs a deep copy of v: containers recursively copy their
// elements, scalars copy by value. The returned Value is independent of v
// and must be destroyed separately.
func (v *Value) Copy() (*Value, error) {
	if v == nil {
		return nil, nil
	}
	switch v.kind {
	case Array:
		elems := v.payload.([]*Value)
		out := make([]*Value, len(elems))
		for i, e := range elems {
			c, err := e.Copy()
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return NewArray(out), nil
	case Map:
		entries := v.payload.([]MapEntry)
		out := make([]MapEntry, len(entries))
		for i, e := range entries {
			k, err := e.Key.Copy()
			if err != nil {
				return nil, err
			}
			val, err := e.Val.Copy()
			if err != nil {
				return nil, err
			}
			out[i] = MapEntry{Key: k, Val: val}
		}
		return NewMap(out), nil
	case Object:
		fields := v.payload.(map[string]*Value)
		out := make(map[string]*Value, len(fields))
		for name, f := range fields {
			c, err := f.Copy()
			if err != nil {
				return nil, err
			}
			out[name] = c
		}
		return NewObject(v.typ, out)
	case Exception, Throwable:
		info := v.payload.(ExceptionInfo)
		cause, err := info.Cause.Copy()
		if err != nil {
			return nil, err
		}
		info.Cause = cause
		return newValue(v.kind, info, v.typ), nil
	default:
		return newValue(v.kind, v.payload, v.typ), nil
	}
}

// String renders v for logging/debugging; it is not the canonical decimal
// textual form produced by Cast to String (see cast.go), only a debug aid.
func (v *Value) String() string {
	if v == nil {
		return "<nil value>"
	}
	return fmt.Sprintf("Value{kind=%s, payload=%v}", v.kind, v.payload)
}

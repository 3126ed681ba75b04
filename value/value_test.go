package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripScalars(t *testing.T) {
	b, err := NewBool(true).ToBool()
	require.NoError(t, err)
	assert.True(t, b)

	c, err := NewChar(42).ToChar()
	require.NoError(t, err)
	assert.Equal(t, byte(42), c)

	sh, err := NewShort(-7).ToShort()
	require.NoError(t, err)
	assert.Equal(t, int16(-7), sh)

	i, err := NewInt(1234).ToInt()
	require.NoError(t, err)
	assert.Equal(t, int32(1234), i)

	l, err := NewLong(999999999).ToLong()
	require.NoError(t, err)
	assert.Equal(t, int64(999999999), l)

	f, err := NewFloat(3.5).ToFloat()
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f)

	d, err := NewDouble(3.14159).ToDouble()
	require.NoError(t, err)
	assert.Equal(t, 3.14159, d)

	s, err := NewString("hello").ToString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestDestroyIdempotent(t *testing.T) {
	v := NewInt(5)
	assert.False(t, v.IsDestroyed())
	v.Destroy()
	assert.True(t, v.IsDestroyed())
	v.Destroy() // must not panic
	assert.True(t, v.IsDestroyed())
}

func TestDestroyNullIsNoop(t *testing.T) {
	n := NewNull()
	n.Destroy()
	n.Destroy()
}

func TestDestroyArrayDestroysElements(t *testing.T) {
	a := NewInt(1)
	b := NewInt(2)
	arr := NewArray([]*Value{a, b})
	arr.Destroy()
	assert.True(t, a.IsDestroyed())
	assert.True(t, b.IsDestroyed())
}

func TestDestroyMapDestroysEntries(t *testing.T) {
	k := NewString("k")
	val := NewInt(1)
	m := NewMap([]MapEntry{{Key: k, Val: val}})
	m.Destroy()
	assert.True(t, k.IsDestroyed())
	assert.True(t, val.IsDestroyed())
}

func TestArrayCopyIsDeep(t *testing.T) {
	elem := NewInt(9)
	arr := NewArray([]*Value{elem})
	cp, err := arr.Copy()
	require.NoError(t, err)

	elems, err := cp.ToArray()
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.NotSame(t, elem, elems[0])

	arr.Destroy()
	assert.False(t, elems[0].IsDestroyed())
}

func TestObjectRequiresType(t *testing.T) {
	_, err := NewObject(nil, nil)
	assert.Error(t, err)
}

type fakeType struct{ name string }

func (f fakeType) TypeName() string { return f.name }
func (f fakeType) TypeID() Kind     { return Object }

func (f fakeType) ValidateFields(fields map[string]*Value) error { return nil }

// schemaFakeType is a TypeRef whose ValidateFields delegates to an
// injected func, so tests can exercise NewObject's schema-gating path
// without compiling a real JSON Schema document.
type schemaFakeType struct {
	fakeType
	validate func(map[string]*Value) error
}

func (f schemaFakeType) ValidateFields(fields map[string]*Value) error { return f.validate(fields) }

func TestObjectConstructionRejectedBySchema(t *testing.T) {
	typ := schemaFakeType{
		fakeType: fakeType{name: "Point"},
		validate: func(map[string]*Value) error { return assert.AnError },
	}
	_, err := NewObject(typ, map[string]*Value{"x": NewInt(1)})
	assert.Error(t, err)
}

func TestObjectConstructionPassesSchema(t *testing.T) {
	var seen map[string]*Value
	typ := schemaFakeType{
		fakeType: fakeType{name: "Point"},
		validate: func(fields map[string]*Value) error { seen = fields; return nil },
	}
	obj, err := NewObject(typ, map[string]*Value{"x": NewInt(1)})
	require.NoError(t, err)
	assert.NotNil(t, seen)
	obj.Destroy()
}

func TestObjectFieldsOwned(t *testing.T) {
	field := NewInt(1)
	obj, err := NewObject(fakeType{name: "Point"}, map[string]*Value{"x": field})
	require.NoError(t, err)
	fields, err := obj.ToFields()
	require.NoError(t, err)
	assert.Same(t, field, fields["x"])
	obj.Destroy()
	assert.True(t, field.IsDestroyed())
}

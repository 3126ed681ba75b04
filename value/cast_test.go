package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFloatToBoolNonTruncating pins the documented boundary behavior: a
// non-zero finite float magnitude casts to true even when the truncated
// integer part would be zero after a naive int conversion.
func TestFloatToBoolNonTruncating(t *testing.T) {
	out, err := Cast(NewDouble(100.324), Bool)
	require.NoError(t, err)
	b, err := out.ToBool()
	require.NoError(t, err)
	assert.True(t, b)

	out2, err := Cast(NewDouble(0.0004), Bool)
	require.NoError(t, err)
	b2, err := out2.ToBool()
	require.NoError(t, err)
	assert.True(t, b2)

	out3, err := Cast(NewDouble(0), Bool)
	require.NoError(t, err)
	b3, err := out3.ToBool()
	require.NoError(t, err)
	assert.False(t, b3)
}

func TestFloatTruncationTowardZero(t *testing.T) {
	out, err := Cast(NewDouble(7.9), Int)
	require.NoError(t, err)
	i, err := out.ToInt()
	require.NoError(t, err)
	assert.Equal(t, int32(7), i)

	out2, err := Cast(NewDouble(-7.9), Long)
	require.NoError(t, err)
	l, err := out2.ToLong()
	require.NoError(t, err)
	assert.Equal(t, int64(-7), l)
}

func TestFloatFloatDoubleIdentity(t *testing.T) {
	out, err := Cast(NewFloat(1.5), Float)
	require.NoError(t, err)
	f, err := out.ToFloat()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)

	out2, err := Cast(NewDouble(2.5), Double)
	require.NoError(t, err)
	d, err := out2.ToDouble()
	require.NoError(t, err)
	assert.Equal(t, 2.5, d)
}

func TestIntegerNarrowingTwosComplement(t *testing.T) {
	out, err := Cast(NewLong(300), Char)
	require.NoError(t, err)
	c, err := out.ToChar()
	require.NoError(t, err)
	assert.Equal(t, byte(300%256), c)

	out2, err := Cast(NewInt(70000), Short)
	require.NoError(t, err)
	s, err := out2.ToShort()
	require.NoError(t, err)
	assert.Equal(t, int16(int32(70000)), s)
}

func TestStringToNumericParsesLeadingDigits(t *testing.T) {
	out, err := Cast(NewString("  42rest"), Int)
	require.NoError(t, err)
	i, err := out.ToInt()
	require.NoError(t, err)
	assert.Equal(t, int32(42), i)
}

func TestStringToNumericFailedParseYieldsZero(t *testing.T) {
	out, err := Cast(NewString("not-a-number"), Long)
	require.NoError(t, err, "a failed parse must not surface an error")
	l, err := out.ToLong()
	require.NoError(t, err)
	assert.Equal(t, int64(0), l)
}

func TestAnyToStringCanonicalDecimal(t *testing.T) {
	out, err := Cast(NewLong(4500), String)
	require.NoError(t, err)
	s, err := out.ToString()
	require.NoError(t, err)
	assert.Equal(t, "4500", s)
}

func TestContainerScalarCastIsError(t *testing.T) {
	v := NewArray([]*Value{NewInt(1)})
	out, err := Cast(v, Int)
	assert.Error(t, err)
	assert.Same(t, v, out)
	assert.False(t, v.IsDestroyed(), "a failed cast must leave the source untouched")
}

func TestArrayCastUnsupportedTargetLeavesArrayUnchanged(t *testing.T) {
	v := NewArray([]*Value{NewInt(1), NewInt(2)})
	out, err := Cast(v, String)
	require.Error(t, err)
	assert.Same(t, v, out)
	elems, err := out.ToArray()
	require.NoError(t, err)
	assert.Len(t, elems, 2)
}

func TestArrayToArrayIsDeepCopy(t *testing.T) {
	elem := NewInt(9)
	v := NewArray([]*Value{elem})
	out, err := Cast(v, Array)
	require.NoError(t, err)
	assert.True(t, v.IsDestroyed())

	elems, err := out.ToArray()
	require.NoError(t, err)
	assert.NotSame(t, elem, elems[0])
}

func TestCastLongDoubleRoundTrip(t *testing.T) {
	v := NewLong(42)
	mid, err := Cast(v, Double)
	require.NoError(t, err)
	back, err := Cast(mid, Long)
	require.NoError(t, err)
	l, err := back.ToLong()
	require.NoError(t, err)
	assert.Equal(t, int64(42), l)
}

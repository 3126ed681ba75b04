package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/polyrt/ffi/ferr"
)

// Cast converts v into a new Value of kind target, following the total
// table described in the package's design notes. The source Value is always
// consumed (Destroy'd) on success. On failure (container<->scalar or any
// other unsupported pair), the original Value is returned unchanged and is
// NOT consumed, per the documented contract.
func Cast(v *Value, target Kind) (*Value, error) {
	if v == nil {
		return nil, ferr.New(ferr.SignatureMismatch, "cannot cast a nil value")
	}
	source := v.kind

	if source == target {
		return identityCast(v)
	}

	if isContainerScalarPair(source, target) {
		return v, ferr.Newf(ferr.SignatureMismatch, "cannot cast %s to %s: container/scalar conversions are undefined", source, target)
	}

	switch {
	case source == String && target.numeric():
		return stringToNumeric(v, target)
	case target == String:
		return anyToString(v)
	case source.numeric() && target.numeric():
		return numericToNumeric(v, target)
	default:
		return v, ferr.Newf(ferr.SignatureMismatch, "no cast defined from %s to %s", source, target)
	}
}

// identityCast returns an equivalent new Value of the same kind and
// consumes the source, matching Cast's general consume-on-success contract
// even when source and target kinds coincide (float->float, double->double,
// array->array, etc. are all identity under this rule except containers,
// which still deep-copy so the two Values do not alias).
func identityCast(v *Value) (*Value, error) {
	switch v.kind {
	case Array, Map, Object:
		out, err := v.Copy()
		if err != nil {
			return v, err
		}
		v.Destroy()
		return out, nil
	default:
		out := newValue(v.kind, v.payload, v.typ)
		v.mu.Lock()
		v.destroyed = true // consumed; payload ownership moved to out
		v.mu.Unlock()
		return out, nil
	}
}

func isContainerScalarPair(source, target Kind) bool {
	sourceContainer := source == Array || source == Map
	targetContainer := target == Array || target == Map
	sourceScalar := source.numeric() || source == String
	targetScalar := target.numeric() || target == String
	return (sourceContainer && targetScalar) || (sourceScalar && targetContainer)
}

// numericToNumeric implements the numeric<->numeric half of the cast table:
// standard two's-complement truncation for integer narrowing, IEEE-754
// truncation toward zero for float->integer, and the non-truncating
// "any non-zero finite magnitude is true" rule for float/double->bool.
func numericToNumeric(v *Value, target Kind) (*Value, error) {
	f, isFloat, i, err := numericPayload(v)
	if err != nil {
		return v, err
	}
	v.Destroy()

	if target == Bool {
		var nonZero bool
		if isFloat {
			nonZero = f != 0 && !math.IsNaN(f)
		} else {
			nonZero = i != 0
		}
		return NewBool(nonZero), nil
	}

	if isFloat {
		switch target {
		case Float:
			return NewFloat(float32(f)), nil
		case Double:
			return NewDouble(f), nil
		case Char:
			return NewChar(byte(int64(f))), nil
		case Short:
			return NewShort(int16(int64(f))), nil
		case Int:
			return NewInt(int32(int64(f))), nil
		case Long:
			return NewLong(int64(f)), nil
		}
	}

	switch target {
	case Char:
		return NewChar(byte(i)), nil
	case Short:
		return NewShort(int16(i)), nil
	case Int:
		return NewInt(int32(i)), nil
	case Long:
		return NewLong(i), nil
	case Float:
		return NewFloat(float32(i)), nil
	case Double:
		return NewDouble(float64(i)), nil
	}
	return nil, ferr.Newf(ferr.SignatureMismatch, "unreachable numeric cast target %s", target)
}

// numericPayload extracts a scalar's value as either a float64 (isFloat) or
// an int64, without consuming v.
func numericPayload(v *Value) (f float64, isFloat bool, i int64, err error) {
	switch v.kind {
	case Bool:
		b := v.payload.(bool)
		if b {
			i = 1
		}
	case Char:
		i = int64(v.payload.(byte))
	case Short:
		i = int64(v.payload.(int16))
	case Int:
		i = int64(v.payload.(int32))
	case Long:
		i = v.payload.(int64)
	case Float:
		f, isFloat = float64(v.payload.(float32)), true
	case Double:
		f, isFloat = v.payload.(float64), true
	default:
		return 0, false, 0, ferr.Newf(ferr.SignatureMismatch, "%s is not numeric", v.kind)
	}
	return f, isFloat, i, nil
}

// stringToNumeric parses leading whitespace and digits from a String value.
// A failed parse yields the zero value of the target kind; this is not an
// error, matching the existing contract callers depend on.
func stringToNumeric(v *Value, target Kind) (*Value, error) {
	s := v.payload.(string)
	v.Destroy()

	trimmed := strings.TrimLeft(s, " \t\n\r\v\f")
	token := leadingNumericToken(trimmed)

	if target.container() {
		return nil, ferr.Newf(ferr.SignatureMismatch, "no cast defined from string to %s", target)
	}

	if target == Float || target == Double {
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			f = 0
		}
		if target == Float {
			return NewFloat(float32(f)), nil
		}
		return NewDouble(f), nil
	}

	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		n = 0
	}
	switch target {
	case Bool:
		return NewBool(n != 0), nil
	case Char:
		return NewChar(byte(n)), nil
	case Short:
		return NewShort(int16(n)), nil
	case Int:
		return NewInt(int32(n)), nil
	case Long:
		return NewLong(n), nil
	}
	return nil, ferr.Newf(ferr.SignatureMismatch, "unreachable string cast target %s", target)
}

// leadingNumericToken returns the longest prefix of s that parses as a
// number (optional sign, digits, optional single decimal point and more
// digits). Returns "" if s has no such prefix.
func leadingNumericToken(s string) string {
	i := 0
	n := len(s)
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	digitsBeforeDot := i > start
	if i < n && s[i] == '.' {
		j := i + 1
		for j < n && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > i+1 {
			return s[:j]
		}
	}
	if !digitsBeforeDot {
		return ""
	}
	return s[:i]
}

// anyToString produces the canonical decimal textual form of v and consumes
// it, per the any->string rule.
func anyToString(v *Value) (*Value, error) {
	var s string
	switch v.kind {
	case Bool:
		if v.payload.(bool) {
			s = "1"
		} else {
			s = "0"
		}
	case Char:
		s = strconv.FormatInt(int64(v.payload.(byte)), 10)
	case Short:
		s = strconv.FormatInt(int64(v.payload.(int16)), 10)
	case Int:
		s = strconv.FormatInt(int64(v.payload.(int32)), 10)
	case Long:
		s = strconv.FormatInt(v.payload.(int64), 10)
	case Float:
		s = strconv.FormatFloat(float64(v.payload.(float32)), 'f', -1, 32)
	case Double:
		s = strconv.FormatFloat(v.payload.(float64), 'f', -1, 64)
	case String:
		s = v.payload.(string)
	case Null:
		s = ""
	default:
		return v, ferr.Newf(ferr.SignatureMismatch, "no cast defined from %s to string", v.kind)
	}
	v.Destroy()
	return NewString(s), nil
}

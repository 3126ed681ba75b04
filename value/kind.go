package value

// Kind identifies the domain a Value belongs to. The set is closed: every
// Value carries exactly one Kind for its entire lifetime.
type Kind string

const (
	Bool      Kind = "bool"
	Char      Kind = "char"
	Short     Kind = "short"
	Int       Kind = "int"
	Long      Kind = "long"
	Float     Kind = "float"
	Double    Kind = "double"
	String    Kind = "string"
	Buffer    Kind = "buffer"
	Array     Kind = "array"
	Map       Kind = "map"
	Pointer   Kind = "pointer"
	Future    Kind = "future"
	Function  Kind = "function"
	Null      Kind = "null"
	Class     Kind = "class"
	Object    Kind = "object"
	Exception Kind = "exception"
	Throwable Kind = "throwable"
)

// numeric reports whether k is one of the scalar numeric kinds.
func (k Kind) numeric() bool {
	switch k {
	case Bool, Char, Short, Int, Long, Float, Double:
		return true
	default:
		return false
	}
}

// container reports whether k owns nested Values that must be recursively
// destroyed/copied.
func (k Kind) container() bool {
	switch k {
	case Array, Map, Object:
		return true
	default:
		return false
	}
}

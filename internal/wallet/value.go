package wallet

import (
	"fmt"
	"slices"
	"strconv"
)

// Value is a sealed interface for opaque, type-erased document values.
// Only Null, String, Number, Bool, Array and *Object implement it.
//
// Values carry data the schema does not interpret (extension bags, seed key
// material) so they must survive a round trip byte-for-byte. Number keeps
// the JSON literal text instead of converting to float64 or int64.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null.
type Null struct{}

func (Null) value() {}

// String represents a JSON string.
type String string

func (String) value() {}

// Number holds a JSON number literal exactly as it appeared in the source,
// e.g. "42", "-0.5" or "1e400". Use Int64 to read it as an integer.
type Number string

func (Number) value() {}

// Int64 parses the literal as a base-10 integer.
func (n Number) Int64() (int64, error) {
	i, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("number %s is not an int64", string(n))
	}
	return i, nil
}

// Bool represents a JSON boolean.
type Bool bool

func (Bool) value() {}

// Array represents an ordered sequence of values.
type Array []Value

func (Array) value() {}

func (*Object) value() {}

// Int returns the Number literal for n.
func Int(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// EqualValues reports whether a and b hold the same data.
// Numbers compare by literal, so "1" and "1.0" differ.
func EqualValues(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		return ok && slices.EqualFunc(av, bv, EqualValues)
	case *Object:
		bv, ok := b.(*Object)
		return ok && av.Equal(bv)
	default:
		return false
	}
}

// CloneValue returns a deep copy of v.
func CloneValue(v Value) Value {
	switch val := v.(type) {
	case Array:
		if val == nil {
			return Array(nil)
		}
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = CloneValue(elem)
		}
		return out
	case *Object:
		return val.Clone()
	default:
		// Scalars are immutable.
		return v
	}
}

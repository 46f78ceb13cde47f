package wallet

import (
	"slices"
	"unicode/utf16"
)

// Object is an ordered mapping from string keys to Values.
//
// Keys keep insertion order; setting an existing key replaces its value in
// place without moving it. The zero value is an empty, ready-to-use Object
// and a nil *Object reads as empty.
type Object struct {
	keys []string
	vals map[string]Value
}

// Extension is the bag of fields a document carried that the current schema
// does not recognize. It is re-emitted verbatim on encode.
type Extension = Object

// Pair is a key-value pair for ordered Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewObject(P("color", String("blue")), P("rank", Int(3)))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject creates an Object holding pairs in order.
func NewObject(pairs ...Pair) *Object {
	obj := &Object{}
	for _, p := range pairs {
		obj.Set(p.Key, p.Value)
	}
	return obj
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.vals == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. A nil v is stored as Null.
func (o *Object) Set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil || o.vals == nil {
		return false
	}
	if _, ok := o.vals[key]; !ok {
		return false
	}
	delete(o.vals, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
	return true
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Clone(o.keys)
}

// Range calls fn for each entry in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (o *Object) SortedKeys() []string {
	keys := o.Keys()
	slices.SortFunc(keys, CompareKeys)
	return keys
}

// Clone returns a deep copy of o. Cloning nil yields an empty Object.
func (o *Object) Clone() *Object {
	out := &Object{}
	o.Range(func(k string, v Value) bool {
		out.Set(k, CloneValue(v))
		return true
	})
	return out
}

// Equal reports whether o and other hold the same entries in the same order.
// A nil Object equals an empty one.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for i, k := range o.Keys() {
		if other.keys[i] != k {
			return false
		}
		if !EqualValues(o.vals[k], other.vals[k]) {
			return false
		}
	}
	return true
}

// CompareKeys orders strings by UTF-16 code units as required by RFC 8785.
// Go's native string comparison uses UTF-8 bytes, which orders characters
// outside the BMP differently.
func CompareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

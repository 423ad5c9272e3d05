// Package sizeest approximates the in-memory size of cached values.
//
// Values are described by a closed set of variants (text, number, sequence,
// mapping, opaque) and Estimate walks that description. The result is an
// approximation that grows with content size; it is not an exact byte count.
package sizeest

import (
	"fmt"
	"reflect"
)

// Fixed costs used by the estimator.
const (
	NumberSize        = 8
	ContainerOverhead = 64
	OpaqueOverhead    = 100
	FallbackSize      = 1024

	// MaxDepth bounds how deeply nested a value may be before it is
	// treated as unsizable.
	MaxDepth = 1000
)

// Kind tags a Value variant.
type Kind uint8

const (
	KindText Kind = iota
	KindNumber
	KindSequence
	KindMapping
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindOpaque:
		return "opaque"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value describes a value for size estimation.
// Construct it with Text, Number, Sequence, Mapping, Opaque or Of.
type Value struct {
	kind   Kind
	text   string
	items  []Value
	pairs  []Pair
	opaque any

	unsizable bool
}

// Pair is one key/value entry of a mapping.
type Pair struct {
	Key   Value
	Value Value
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Text describes a string.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number describes any numeric scalar.
func Number() Value { return Value{kind: KindNumber} }

// Sequence describes an ordered collection.
func Sequence(items ...Value) Value { return Value{kind: KindSequence, items: items} }

// Mapping describes a keyed collection.
func Mapping(pairs ...Pair) Value { return Value{kind: KindMapping, pairs: pairs} }

// Opaque describes a value that is sized by its textual form.
func Opaque(v any) Value { return Value{kind: KindOpaque, opaque: v} }

// unsizable describes a value Estimate cannot size.
func unsizable() Value { return Value{kind: KindOpaque, unsizable: true} }

// Estimate returns the approximate size of v in bytes.
// It never fails: if estimation panics, or v holds a value that cannot be
// sized (a reference cycle, or nesting deeper than MaxDepth), FallbackSize is
// returned.
func Estimate(v Value) (size int64) {
	defer func() {
		if recover() != nil {
			size = FallbackSize
		}
	}()
	n, ok := estimate(v)
	if !ok {
		return FallbackSize
	}
	return n
}

func estimate(v Value) (int64, bool) {
	if v.unsizable {
		return 0, false
	}
	switch v.kind {
	case KindText:
		return int64(len(v.text)), true
	case KindNumber:
		return NumberSize, true
	case KindSequence:
		total := int64(ContainerOverhead)
		for _, item := range v.items {
			n, ok := estimate(item)
			if !ok {
				return 0, false
			}
			total += n
		}
		return total, true
	case KindMapping:
		total := int64(ContainerOverhead)
		for _, p := range v.pairs {
			k, ok := estimate(p.Key)
			if !ok {
				return 0, false
			}
			n, ok := estimate(p.Value)
			if !ok {
				return 0, false
			}
			total += k + n
		}
		return total, true
	default:
		// Formatting a self-containing map or slice never terminates.
		if cyclic(reflect.ValueOf(v.opaque)) {
			return 0, false
		}
		return int64(len(fmt.Sprint(v.opaque))) + OpaqueOverhead, true
	}
}

// Of classifies an arbitrary Go value into the variant set.
// Strings and byte slices are text, numeric kinds are numbers, slices and
// arrays are sequences, maps are mappings; everything else is opaque.
// A value that reaches itself through a map, slice or pointer, or nests
// deeper than MaxDepth, is classified as unsizable and estimates to
// FallbackSize.
func Of(x any) Value {
	c := classifier{onPath: make(map[visit]bool)}
	return c.of(x, 0)
}

// visit identifies a container on the current classification path.
type visit struct {
	ptr uintptr
	len int
	typ reflect.Type
}

type classifier struct {
	onPath map[visit]bool
}

func (c *classifier) of(x any, depth int) Value {
	if depth > MaxDepth {
		return unsizable()
	}
	switch t := x.(type) {
	case nil:
		return Opaque(nil)
	case Value:
		return t
	case string:
		return Text(t)
	case []byte:
		return Text(string(t))
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64, complex64, complex128:
		return Number()
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = Text(s)
		}
		return Sequence(items...)
	case map[string]string:
		pairs := make([]Pair, 0, len(t))
		for k, e := range t {
			pairs = append(pairs, Pair{Key: Text(k), Value: Text(e)})
		}
		return Mapping(pairs...)
	}
	return c.ofReflect(reflect.ValueOf(x), depth)
}

// enter marks rv as being classified. It reports false if rv is already on
// the path, which means the value contains itself.
func (c *classifier) enter(rv reflect.Value) (leave func(), ok bool) {
	key := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		key.len = rv.Len()
	}
	if c.onPath[key] {
		return nil, false
	}
	c.onPath[key] = true
	return func() { delete(c.onPath, key) }, true
}

func (c *classifier) ofReflect(rv reflect.Value, depth int) Value {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Len() > 0 {
			leave, ok := c.enter(rv)
			if !ok {
				return unsizable()
			}
			defer leave()
		}
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = c.of(rv.Index(i).Interface(), depth+1)
		}
		return Sequence(items...)
	case reflect.Map:
		if rv.Len() > 0 {
			leave, ok := c.enter(rv)
			if !ok {
				return unsizable()
			}
			defer leave()
		}
		pairs := make([]Pair, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, Pair{
				Key:   c.of(iter.Key().Interface(), depth+1),
				Value: c.of(iter.Value().Interface(), depth+1),
			})
		}
		return Mapping(pairs...)
	case reflect.Pointer:
		if rv.IsNil() {
			return Opaque(nil)
		}
		if _, ok := rv.Interface().(fmt.Stringer); ok {
			return Opaque(rv.Interface())
		}
		leave, ok := c.enter(rv)
		if !ok {
			return unsizable()
		}
		defer leave()
		return c.of(rv.Elem().Interface(), depth+1)
	}
	return Opaque(rv.Interface())
}

// cyclic reports whether formatting rv with fmt would recurse without end:
// rv reaches a map or slice that contains itself, or nests deeper than
// MaxDepth. Like fmt, it only follows a pointer at the top level.
func cyclic(rv reflect.Value) bool {
	w := walker{onPath: make(map[visit]bool), done: make(map[visit]bool)}
	return w.cyclic(rv, 0)
}

type walker struct {
	onPath map[visit]bool
	done   map[visit]bool
}

func (w *walker) cyclic(rv reflect.Value, depth int) bool {
	if !rv.IsValid() {
		return false
	}
	if depth > MaxDepth {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer:
		if depth > 0 || rv.IsNil() {
			return false
		}
		return w.cyclic(rv.Elem(), depth+1)
	case reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return w.cyclic(rv.Elem(), depth+1)
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if w.cyclic(rv.Field(i), depth+1) {
				return true
			}
		}
		return false
	case reflect.Array:
		if leaf(rv.Type().Elem()) {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if w.cyclic(rv.Index(i), depth+1) {
				return true
			}
		}
		return false
	case reflect.Slice, reflect.Map:
	default:
		return false
	}

	if rv.IsNil() || rv.Len() == 0 {
		return false
	}
	key := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		key.len = rv.Len()
	}
	if w.onPath[key] {
		return true
	}
	if w.done[key] {
		return false
	}
	w.onPath[key] = true
	defer func() {
		delete(w.onPath, key)
		w.done[key] = true
	}()

	if rv.Kind() == reflect.Slice {
		if leaf(rv.Type().Elem()) {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if w.cyclic(rv.Index(i), depth+1) {
				return true
			}
		}
		return false
	}
	if leaf(rv.Type().Key()) && leaf(rv.Type().Elem()) {
		return false
	}
	iter := rv.MapRange()
	for iter.Next() {
		if w.cyclic(iter.Key(), depth+1) || w.cyclic(iter.Value(), depth+1) {
			return true
		}
	}
	return false
}

// leaf reports whether values of t cannot reference other values.
func leaf(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

// EstimateAny is shorthand for Estimate(Of(x)).
func EstimateAny(x any) (size int64) {
	defer func() {
		if recover() != nil {
			size = FallbackSize
		}
	}()
	return Estimate(Of(x))
}

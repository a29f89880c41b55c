// Package formula implements the expression language game content is written
// in: a dynamically typed, side-effect-free evaluator whose only observable
// mutations are deferred Command values executed later by the engine.
package formula

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which member of the Value sum is populated.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindString
	KindList
	KindMap
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is the unit of data flowing through the evaluator. Values are
// immutable once constructed; booleans are represented as ints 0/1.
type Value struct {
	kind Kind
	num  int
	str  string
	list []Value
	mp   map[string]Value
	obj  Callable
}

// Null is the zero Value.
var Null = Value{}

// Int wraps an integer.
func Int(n int) Value { return Value{kind: KindInt, num: n} }

// Bool wraps a boolean as an integer 0/1.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// List wraps a slice. The slice is owned by the Value afterwards.
func List(items []Value) Value { return Value{kind: KindList, list: items} }

// Map wraps a key→value mapping. The map is owned by the Value afterwards.
func Map(m map[string]Value) Value { return Value{kind: KindMap, mp: m} }

// Object wraps a Callable reference. A nil Callable yields Null.
func Object(c Callable) Value {
	if c == nil {
		return Null
	}
	return Value{kind: KindObject, obj: c}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsList() bool   { return v.kind == KindList }
func (v Value) IsMap() bool    { return v.kind == KindMap }
func (v Value) IsString() bool { return v.kind == KindString }

// AsInt coerces to an integer. Strings parse permissively; everything else
// that is not an int yields 0.
func (v Value) AsInt() int {
	switch v.kind {
	case KindInt:
		return v.num
	case KindString:
		n, _ := strconv.Atoi(v.str)
		return n
	}
	return 0
}

// AsBool follows the language's truthiness: non-zero ints, non-empty
// strings/lists/maps and any object are true.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindInt:
		return v.num != 0
	case KindString:
		return v.str != ""
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.mp) > 0
	case KindObject:
		return v.obj != nil
	}
	return false
}

// AsString returns the string payload, or "" for non-strings.
func (v Value) AsString() string {
	if v.kind == KindString {
		return v.str
	}
	return ""
}

// AsCallable returns the referenced object, or nil.
func (v Value) AsCallable() Callable {
	if v.kind == KindObject {
		return v.obj
	}
	return nil
}

// Len returns the element count of a list or map, otherwise 0.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.mp)
	}
	return 0
}

// Index returns the nth element of a list. Out-of-range lookups halt: they
// are content defects and silently corrupting shared state is worse.
func (v Value) Index(n int) Value {
	if v.kind != KindList {
		return Null
	}
	if n < 0 || n >= len(v.list) {
		panic(fmt.Sprintf("formula: list index %d out of range [0,%d)", n, len(v.list)))
	}
	return v.list[n]
}

// Elements returns the backing slice of a list, or nil. Callers must not
// mutate it.
func (v Value) Elements() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Lookup fetches a map key or an object field. Unknown keys are Null, never
// an error; the content relies on that permissiveness.
func (v Value) Lookup(key string) Value {
	switch v.kind {
	case KindMap:
		return v.mp[key]
	case KindObject:
		return v.obj.GetValue(key)
	}
	return Null
}

// Keys returns a map's keys, sorted, as a list of strings.
func (v Value) Keys() Value {
	if v.kind != KindMap {
		return Null
	}
	keys := make([]string, 0, len(v.mp))
	for k := range v.mp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Value, len(keys))
	for i, k := range keys {
		out[i] = String(k)
	}
	return List(out)
}

// Values returns a map's values in key order as a list.
func (v Value) Values() Value {
	if v.kind != KindMap {
		return Null
	}
	keys := v.Keys()
	out := make([]Value, 0, len(v.mp))
	for _, k := range keys.Elements() {
		out = append(out, v.mp[k.AsString()])
	}
	return List(out)
}

// Add implements the language's + operator: ints add, strings and lists
// concatenate, anything else degrades to integer addition.
func (v Value) Add(o Value) Value {
	switch {
	case v.kind == KindString && o.kind == KindString:
		return String(v.str + o.str)
	case v.kind == KindList && o.kind == KindList:
		out := make([]Value, 0, len(v.list)+len(o.list))
		out = append(out, v.list...)
		out = append(out, o.list...)
		return List(out)
	}
	return Int(v.AsInt() + o.AsInt())
}

// Equals is structural for primitives, lists and maps, identity for objects.
func (v Value) Equals(o Value) bool {
	if v.kind != o.kind {
		// null == 0 is false; kinds must match.
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equals(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.mp) != len(o.mp) {
			return false
		}
		for k, a := range v.mp {
			b, ok := o.mp[k]
			if !ok || !a.Equals(b) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj == o.obj
	}
	return false
}

// Compare orders values: first by kind, then structurally. Used by sort()
// without a comparator and by min/max over mixed input.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		return int(v.kind) - int(o.kind)
	}
	switch v.kind {
	case KindInt:
		return v.num - o.num
	case KindString:
		return strings.Compare(v.str, o.str)
	case KindList:
		for i := 0; i < len(v.list) && i < len(o.list); i++ {
			if c := v.list[i].Compare(o.list[i]); c != 0 {
				return c
			}
		}
		return len(v.list) - len(o.list)
	}
	return 0
}

// Less reports v < o under Compare ordering.
func (v Value) Less(o Value) bool { return v.Compare(o) < 0 }

// String serializes a value in formula source syntax. Object references
// serialize through their Callable when it implements Serializer, otherwise
// as their debug form.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null()"
	case KindInt:
		return strconv.Itoa(v.num)
	case KindString:
		return "'" + v.str + "'"
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindMap:
		keys := v.Keys()
		var b strings.Builder
		b.WriteString("mapping(")
		for i, k := range keys.Elements() {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(k.String())
			b.WriteString(",")
			b.WriteString(v.mp[k.AsString()].String())
		}
		b.WriteString(")")
		return b.String()
	case KindObject:
		if s, ok := v.obj.(Serializer); ok {
			return s.SerializeValue()
		}
		return fmt.Sprintf("object(%T)", v.obj)
	}
	return "null()"
}

// Serializer lets a Callable control its textual form in str() and
// serialized snapshots.
type Serializer interface {
	SerializeValue() string
}

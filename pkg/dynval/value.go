// Package dynval implements a dynamic, JSON-shaped value used for runtime
// variable contexts, extracted values and template rendering. The wire
// formats this module speaks (request bodies, extracted values, environment
// variables) are untyped JSON, and no third-party dynamic-value library in
// the available dependency set models a JSON-shaped tagged union (the JSON
// libraries in reach operate on Go struct/interface{} trees, not a reusable
// value type) — this is hand-rolled over encoding/json for that reason.
package dynval

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the underlying shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

// Value is a tagged union over the JSON data model: null, bool, number
// (kept as int or float depending on how it was produced), string, list and
// map. It is the common currency between the template renderer, the
// merger, the HTTP execution engine and the variable extractor.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(v bool) Value          { return Value{kind: KindBool, b: v} }
func Int(v int64) Value          { return Value{kind: KindInt, i: v} }
func Float(v float64) Value      { return Value{kind: KindFloat, f: v} }
func String(v string) Value      { return Value{kind: KindString, s: v} }
func List(v []Value) Value       { return Value{kind: KindList, list: v} }
func Map(v map[string]Value) Value {
	return Value{kind: KindMap, m: v}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }

// List returns the underlying slice, or nil if v is not a list.
func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Map returns the underlying map, or nil if v is not a map.
func (v Value) Map() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// TypeName mirrors Python's type(value).__name__ for the JSON data model,
// matching the value_type recorded alongside extracted variables.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNull:
		return "NoneType"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	case KindList:
		return "list"
	case KindMap:
		return "dict"
	default:
		return "unknown"
	}
}

// Text returns the canonical textual form used when a value is interpolated
// into the middle of a larger string by the template renderer.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Clone performs a deep copy, used wherever a Value crosses an ownership
// boundary (template substitution, merge results, runtime variable writes).
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.Clone()
		}
		return List(out)
	case KindMap:
		out := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			out[k] = item.Clone()
		}
		return Map(out)
	default:
		return v
	}
}

// Equal implements the deep-equality comparator used by the assertion
// evaluator's eq/ne comparators, including numeric-string coercion: a
// string and a number compare equal when the string parses as that number.
func (v Value) Equal(other Value) bool {
	if v.kind == other.kind {
		switch v.kind {
		case KindNull:
			return true
		case KindBool:
			return v.b == other.b
		case KindInt:
			return v.i == other.i
		case KindFloat:
			return v.f == other.f
		case KindString:
			return v.s == other.s
		case KindList:
			if len(v.list) != len(other.list) {
				return false
			}
			for i := range v.list {
				if !v.list[i].Equal(other.list[i]) {
					return false
				}
			}
			return true
		case KindMap:
			if len(v.m) != len(other.m) {
				return false
			}
			for k, item := range v.m {
				o, ok := other.m[k]
				if !ok || !item.Equal(o) {
					return false
				}
			}
			return true
		}
	}

	if vf, ok := v.asNumber(); ok {
		if of, ok := other.asNumber(); ok {
			return vf == of
		}
	}
	return false
}

// asNumber attempts to read a Value as a float64, parsing strings that look
// like a plain number so "200" == 200 under the eq comparator.
func (v Value) asNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Contains implements the contains/not_contains comparator: substring test
// on strings, membership test on lists.
func (v Value) Contains(needle Value) bool {
	switch v.kind {
	case KindString:
		return strings.Contains(v.s, needle.Text())
	case KindList:
		for _, item := range v.list {
			if item.Equal(needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// MarshalJSON encodes the Value back to its JSON representation.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		return json.Marshal(v.list)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes arbitrary JSON into the tagged union, preserving
// whether a number was written as an integer or carries a fractional part.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny converts a decoded encoding/json tree (map[string]any,
// []any, float64, string, bool, nil) into a Value.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			out[i] = FromAny(item)
		}
		return List(out)
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, item := range t {
			out[k] = FromAny(item)
		}
		return Map(out)
	case []Value:
		return List(t)
	case map[string]Value:
		return Map(t)
	case Value:
		return t
	default:
		return Null()
	}
}

// ToAny converts a Value back into a plain interface{} tree suitable for
// encoding/json, driver value binding, or handing to jsonparser consumers.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.ToAny()
		}
		return out
	default:
		return nil
	}
}

// SortedKeys returns the map's keys in sorted order, used by callers that
// need deterministic iteration (logging, test fixtures).
func (v Value) SortedKeys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package domain holds the core data types shared by every subsystem:
// transactions, priority breakdowns, mempool entries, audit entries,
// wallet profiles and the read-only reference directory.
package domain

import (
	"encoding/json"
	"fmt"
)

// Value is a tagged union over the leaf/composite types a transaction
// payload may hold: scalar (string, float64, bool, nil), list or map.
// Payloads arrive as arbitrary JSON, so Value round-trips through
// encoding/json without losing the scalar/list/map distinction.
type Value struct {
	Scalar any
	List   []Value
	Map    map[string]Value
	kind   valueKind
}

type valueKind int

const (
	kindScalar valueKind = iota
	kindList
	kindMap
)

// NewScalar wraps a string/float64/bool/nil leaf.
func NewScalar(v any) Value { return Value{Scalar: v, kind: kindScalar} }

// NewList wraps an ordered sequence of values.
func NewList(v []Value) Value { return Value{List: v, kind: kindList} }

// NewMap wraps a string-keyed map of values.
func NewMap(v map[string]Value) Value { return Value{Map: v, kind: kindMap} }

// IsScalar reports whether this value is a leaf.
func (v Value) IsScalar() bool { return v.kind == kindScalar }

// IsList reports whether this value is an ordered sequence.
func (v Value) IsList() bool { return v.kind == kindList }

// IsMap reports whether this value is a string-keyed map.
func (v Value) IsMap() bool { return v.kind == kindMap }

// ValueFromAny converts a decoded-JSON `any` (as produced by
// encoding/json's default decoding into interface{}) into a Value tree.
func ValueFromAny(raw any) Value {
	switch t := raw.(type) {
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, v := range t {
			m[k] = ValueFromAny(v)
		}
		return NewMap(m)
	case []any:
		l := make([]Value, 0, len(t))
		for _, v := range t {
			l = append(l, ValueFromAny(v))
		}
		return NewList(l)
	default:
		return NewScalar(t)
	}
}

// MarshalJSON renders the Value back into the JSON shape it came from.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindList:
		return json.Marshal(v.List)
	case kindMap:
		return json.Marshal(v.Map)
	default:
		return json.Marshal(v.Scalar)
	}
}

// UnmarshalJSON decodes arbitrary JSON into the tagged union.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueFromAny(raw)
	return nil
}

// Payload is the heterogeneous string-keyed bag of data a transaction
// carries alongside its structured fields.
type Payload map[string]Value

// StringField returns payload[key] as a string, and whether it was
// present and scalar-typed as a string.
func (p Payload) StringField(key string) (string, bool) {
	v, ok := p[key]
	if !ok || !v.IsScalar() {
		return "", false
	}
	s, ok := v.Scalar.(string)
	return s, ok
}

// FlattenedText performs a depth-first traversal of every
// string/number/boolean leaf in the payload and joins them with spaces,
// for keyword scanning by the context engine.
func (p Payload) FlattenedText() string {
	var b []byte
	for _, v := range p {
		b = appendLeaves(b, v)
	}
	return string(b)
}

func appendLeaves(b []byte, v Value) []byte {
	switch {
	case v.IsMap():
		for _, child := range v.Map {
			b = appendLeaves(b, child)
		}
	case v.IsList():
		for _, child := range v.List {
			b = appendLeaves(b, child)
		}
	default:
		switch t := v.Scalar.(type) {
		case string:
			b = append(b, ' ')
			b = append(b, t...)
		case float64:
			b = append(b, ' ')
			b = append(b, fmt.Sprintf("%v", t)...)
		case bool:
			b = append(b, ' ')
			b = append(b, fmt.Sprintf("%v", t)...)
		}
	}
	return b
}

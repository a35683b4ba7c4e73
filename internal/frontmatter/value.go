package frontmatter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind discriminates the value forms allowed in a frontmatter mapping.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
)

// Value is a frontmatter value: a scalar (string, number, bool) or a flat
// list of scalars. Nested mappings and nested lists are not representable,
// which is what makes the codec's round-trip contract checkable.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
}

// String wraps a string scalar.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a numeric scalar.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool wraps a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List wraps a flat list of scalar values.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Kind reports the value's form.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string scalar. Zero value for other kinds.
func (v Value) AsString() string { return v.str }

// AsNumber returns the numeric scalar. Zero value for other kinds.
func (v Value) AsNumber() float64 { return v.num }

// AsBool returns the boolean scalar. Zero value for other kinds.
func (v Value) AsBool() bool { return v.b }

// Items returns the list elements, nil for scalar kinds.
func (v Value) Items() []Value { return v.list }

// Text renders any scalar as its display string; lists render elements
// joined by ", ".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		out := ""
		for i, item := range v.list {
			if i > 0 {
				out += ", "
			}
			out += item.Text()
		}
		return out
	}
	return ""
}

// Equal reports deep equality between two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the value in its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		return json.Marshal(v.list)
	}
	return nil, fmt.Errorf("frontmatter: unknown value kind %d", v.kind)
}

// FromAny converts a decoded JSON value (string, float64, bool, or a flat
// slice of those) into a Value. Nested objects and nested arrays are
// rejected.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case bool:
		return Bool(t), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, el := range t {
			v, err := FromAny(el)
			if err != nil {
				return Value{}, err
			}
			if v.kind == KindList {
				return Value{}, fmt.Errorf("frontmatter: nested lists not supported")
			}
			items = append(items, v)
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("frontmatter: unsupported value type %T", raw)
	}
}

// Map is an insertion-ordered mapping of string keys to Values. The order
// keys were first set is the order they serialize in, so repeated
// parse/serialize cycles are byte-stable.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty ordered mapping.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Set stores v under key, appending the key on first use.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (m *Map) Keys() []string { return m.keys }

// Len returns the number of keys.
func (m *Map) Len() int { return len(m.keys) }

// Equal reports whether two maps hold the same keys in the same order with
// equal values. A nil map equals an empty one.
func (m *Map) Equal(o *Map) bool {
	if m == nil || o == nil {
		return m.len() == 0 && o.len() == 0
	}
	if len(m.keys) != len(o.keys) {
		return false
	}
	for i, k := range m.keys {
		if o.keys[i] != k {
			return false
		}
		if !m.vals[k].Equal(o.vals[k]) {
			return false
		}
	}
	return true
}

// Len-safe accessor for a possibly-nil receiver.
func (m *Map) len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON renders the mapping as a JSON object in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.keys) == 0 {
		return []byte("{}"), nil
	}
	out := []byte{'{'}
	for i, k := range m.keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

// MapFromAny converts a decoded JSON object into a Map. Go maps carry no
// order, so keys are sorted to keep the result deterministic.
func MapFromAny(raw map[string]any) (*Map, error) {
	m := NewMap()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := FromAny(raw[k])
		if err != nil {
			return nil, fmt.Errorf("frontmatter: key %q: %w", k, err)
		}
		m.Set(k, v)
	}
	return m, nil
}

// Package tree implements the immutable state tree: frozen containers,
// dot-path addressing and a structural-sharing writer.
//
// A frozen container (*Map or *List) exposes no mutators; producing a new
// version always goes through With or Write, which copy only the containers
// on the written path. Raw map[string]any and []any values stored inside the
// tree are left untouched and are only frozen when a write passes through
// them.
package tree

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Map is an immutable, insertion-ordered mapping from string keys to values.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap freezes entries into a Map. Keys are ordered lexically since Go maps
// carry no insertion order. The values themselves are not frozen.
func NewMap(entries map[string]any) *Map {
	keys := make([]string, 0, len(entries))
	values := make(map[string]any, len(entries))
	for key, value := range entries {
		keys = append(keys, key)
		values[key] = value
	}
	sort.Strings(keys)
	return &Map{keys: keys, values: values}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	value, ok := m.values[key]
	return value, ok
}

// Value returns the value stored under key or nil.
func (m *Map) Value(key string) any {
	value, _ := m.Get(key)
	return value
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns a copy of the ordered key list.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Range calls fn for each entry in key order until fn returns false.
func (m *Map) Range(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, key := range m.keys {
		if !fn(key, m.values[key]) {
			return
		}
	}
}

// With returns a copy of m with key bound to value. m is left untouched.
func (m *Map) With(key string, value any) *Map {
	size := m.Len()
	next := &Map{
		keys:   make([]string, 0, size+1),
		values: make(map[string]any, size+1),
	}
	if m != nil {
		next.keys = append(next.keys, m.keys...)
		for k, v := range m.values {
			next.values[k] = v
		}
	}
	if _, exists := next.values[key]; !exists {
		next.keys = append(next.keys, key)
	}
	next.values[key] = value
	return next
}

// Equal reports whether both maps hold deeply equal entries.
func (m *Map) Equal(other *Map) bool {
	return Equal(m, other)
}

// MarshalJSON encodes the entries in key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		encodedValue, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// List is an immutable sequence. It may carry named side properties that are
// not part of the sequence itself; they survive sequence replacement through
// Write.
type List struct {
	items []any
	props map[string]any
}

// NewList freezes items into a List. The slice is copied.
func NewList(items []any) *List {
	return &List{items: append([]any(nil), items...)}
}

// Len returns the number of items.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At returns the item at index i.
func (l *List) At(i int) (any, bool) {
	if l == nil || i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// Items returns a copy of the sequence.
func (l *List) Items() []any {
	if l == nil {
		return nil
	}
	return append([]any(nil), l.items...)
}

// Prop returns a named side property.
func (l *List) Prop(name string) (any, bool) {
	if l == nil {
		return nil, false
	}
	value, ok := l.props[name]
	return value, ok
}

// Props returns a copy of the side properties.
func (l *List) Props() map[string]any {
	if l == nil || len(l.props) == 0 {
		return nil
	}
	return copyProps(l.props)
}

// WithProps returns a copy of l whose side properties are props layered over
// the existing ones.
func (l *List) WithProps(props map[string]any) *List {
	next := &List{items: l.Items(), props: copyProps(l.propsOrNil())}
	for name, value := range props {
		if next.props == nil {
			next.props = make(map[string]any, len(props))
		}
		next.props[name] = value
	}
	return next
}

// With returns a copy of l with index i set to value. i == Len() appends.
func (l *List) With(i int, value any) (*List, error) {
	if i < 0 || i > l.Len() {
		return nil, ErrIndexOutOfRange
	}
	items := l.Items()
	if i == len(items) {
		items = append(items, value)
	} else {
		items[i] = value
	}
	return &List{items: items, props: copyProps(l.propsOrNil())}, nil
}

// Equal reports whether both lists hold deeply equal items.
func (l *List) Equal(other *List) bool {
	return Equal(l, other)
}

// MarshalJSON encodes the sequence; side properties are not encoded.
func (l *List) MarshalJSON() ([]byte, error) {
	items := l.Items()
	if items == nil {
		items = []any{}
	}
	return json.Marshal(items)
}

func (l *List) propsOrNil() map[string]any {
	if l == nil {
		return nil
	}
	return l.props
}

func copyProps(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

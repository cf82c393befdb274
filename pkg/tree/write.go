package tree

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrEmptyPath indicates a write without any path segment.
	ErrEmptyPath = errors.New("tree: path must not be empty")
	// ErrNotContainer indicates a path that descends through a leaf value.
	ErrNotContainer = errors.New("tree: value is not a container")
	// ErrIndexOutOfRange indicates a sequence segment outside 0..len.
	ErrIndexOutOfRange = errors.New("tree: index out of range")
)

// IsMapping reports whether value is a frozen or raw string-keyed mapping.
func IsMapping(value any) bool {
	switch typed := value.(type) {
	case *Map:
		return typed != nil
	case map[string]any:
		return typed != nil
	default:
		return false
	}
}

// Freeze converts a raw container into its immutable counterpart. Typed
// string-keyed maps, slices and arrays are converted as well, so the caller's
// container is never shared with the tree. Byte slices are copied and kept as
// leaves. Only the outermost level is frozen; every other value is returned
// as is.
func Freeze(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return value
		}
		return NewMap(typed)
	case []any:
		if typed == nil {
			return value
		}
		return NewList(typed)
	case []byte:
		if typed == nil {
			return value
		}
		return append([]byte(nil), typed...)
	default:
		if frozen, ok := freezeTyped(value); ok {
			return frozen
		}
		return value
	}
}

// freezeTyped converts a typed container through reflection. Maps whose key
// kind is not string are not containers.
func freezeTyped(value any) (any, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		entries := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries[iter.Key().String()] = iter.Value().Interface()
		}
		return NewMap(entries), true
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, false
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return &List{items: items}, true
	default:
		return nil, false
	}
}

// freezeReplacing freezes value for storage at a position previously holding
// prev. Side properties of a replaced list are carried onto the new list.
func freezeReplacing(prev, value any) any {
	frozen := Freeze(value)
	next, ok := frozen.(*List)
	if !ok {
		return frozen
	}
	old, ok := prev.(*List)
	if !ok || len(old.props) == 0 {
		return frozen
	}
	carried := old.Props()
	for name, v := range next.props {
		carried[name] = v
	}
	return &List{items: next.Items(), props: carried}
}

// Lookup resolves segments against root.
func Lookup(root any, segments []string) (any, bool) {
	current := root
	for _, segment := range segments {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Write returns a new root in which the value at segments is replaced by
// value. Every container on the path is copied and frozen; all other
// subtrees are shared with root, which is never modified.
func Write(root any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}
	return write(root, segments, 0, value)
}

func write(node any, segments []string, depth int, value any) (any, error) {
	key := segments[depth]
	prev, _ := child(node, key)
	if depth == len(segments)-1 {
		return assign(node, key, freezeReplacing(prev, value), segments[:depth+1])
	}
	updated, err := write(prev, segments, depth+1, value)
	if err != nil {
		return nil, err
	}
	return assign(node, key, updated, segments[:depth+1])
}

func child(node any, key string) (any, bool) {
	switch typed := node.(type) {
	case *Map:
		return typed.Get(key)
	case map[string]any:
		value, ok := typed[key]
		return value, ok
	case *List:
		idx, ok := parseIndex(key)
		if !ok {
			return typed.Prop(key)
		}
		return typed.At(idx)
	case []any:
		idx, ok := parseIndex(key)
		if !ok || idx >= len(typed) {
			return nil, false
		}
		return typed[idx], true
	default:
		if frozen, ok := freezeTyped(node); ok {
			return child(frozen, key)
		}
		return nil, false
	}
}

func assign(node any, key string, value any, at []string) (any, error) {
	switch typed := node.(type) {
	case nil:
		return (*Map)(nil).With(key, value), nil
	case *Map:
		return typed.With(key, value), nil
	case map[string]any:
		return NewMap(typed).With(key, value), nil
	case *List:
		return assignIndex(typed, key, value, at)
	case []any:
		return assignIndex(NewList(typed), key, value, at)
	default:
		if frozen, ok := freezeTyped(node); ok {
			return assign(frozen, key, value, at)
		}
		return nil, fmt.Errorf("%w: %q holds %T", ErrNotContainer, joinSegments(at[:len(at)-1]), node)
	}
}

func assignIndex(list *List, key string, value any, at []string) (any, error) {
	idx, ok := parseIndex(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an index", ErrIndexOutOfRange, joinSegments(at))
	}
	next, err := list.With(idx, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (len %d)", err, joinSegments(at), list.Len())
	}
	return next, nil
}

func joinSegments(segments []string) string {
	path := Root
	for _, segment := range segments {
		path = Join(path, segment)
	}
	return path
}

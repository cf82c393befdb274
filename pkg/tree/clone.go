package tree

import "github.com/goliatone/go-scopes/layering"

// Native returns a plain copy of value in which every frozen container has
// been thawed into map[string]any or []any. Raw and typed containers are
// copied as well, so the result shares no container with value. Leaves are
// shared. List side properties are dropped.
func Native(value any) any {
	switch typed := value.(type) {
	case *Map:
		if typed == nil {
			return nil
		}
		out := make(map[string]any, typed.Len())
		typed.Range(func(key string, v any) bool {
			out[key] = Native(v)
			return true
		})
		return out
	case *List:
		if typed == nil {
			return nil
		}
		out := make([]any, typed.Len())
		for i, item := range typed.items {
			out[i] = Native(item)
		}
		return out
	case map[string]any:
		if typed == nil {
			return typed
		}
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			out[key] = Native(v)
		}
		return out
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Native(item)
		}
		return out
	default:
		if frozen, ok := freezeTyped(value); ok {
			return Native(frozen)
		}
		return value
	}
}

// DeepClone copies value recursively. Frozen containers stay frozen and keep
// their key order and side properties; every other value is copied through
// layering.Clone.
func DeepClone(value any) any {
	switch typed := value.(type) {
	case *Map:
		if typed == nil {
			return value
		}
		out := &Map{
			keys:   typed.Keys(),
			values: make(map[string]any, typed.Len()),
		}
		for key, v := range typed.values {
			out.values[key] = DeepClone(v)
		}
		return out
	case *List:
		if typed == nil {
			return value
		}
		out := &List{items: make([]any, len(typed.items))}
		for i, item := range typed.items {
			out.items[i] = DeepClone(item)
		}
		if len(typed.props) > 0 {
			out.props = make(map[string]any, len(typed.props))
			for name, v := range typed.props {
				out.props[name] = DeepClone(v)
			}
		}
		return out
	case map[string]any:
		if typed == nil {
			return value
		}
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			out[key] = DeepClone(v)
		}
		return out
	case []any:
		if typed == nil {
			return value
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = DeepClone(item)
		}
		return out
	default:
		return layering.Clone(value)
	}
}

package scopes

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-scopes/pkg/tree"
)

// FieldDescriptor describes a path and the inferred type.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// ScopeDescriptor describes one scope of a store.
type ScopeDescriptor struct {
	Path     string            `json:"path"`
	Methods  []string          `json:"methods,omitempty"`
	Children []string          `json:"children,omitempty"`
	Fields   []FieldDescriptor `json:"fields,omitempty"`
}

// Describe lists every scope in depth-first, name-sorted order along with
// the fields of its current value. Field paths are relative to the scope.
func (s *Store) Describe() []ScopeDescriptor {
	out := make([]ScopeDescriptor, 0, len(s.e.nodes))
	for _, n := range s.e.nodes {
		spec := n.spec
		value, _ := tree.Lookup(s.e.state, spec.segments)
		descriptor := ScopeDescriptor{
			Path:    spec.path,
			Methods: append([]string(nil), spec.names...),
			Fields:  FieldDescriptors(value),
		}
		for _, child := range spec.children {
			descriptor.Children = append(descriptor.Children, s.e.nodes[child].spec.path)
		}
		out = append(out, descriptor)
	}
	return out
}

// FieldDescriptors flattens value into leaf paths and their Go types.
func FieldDescriptors(value any) []FieldDescriptor {
	descriptors := deriveFieldDescriptors(tree.Native(value), "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return descriptors
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		return nil
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return []FieldDescriptor{{
				Path: prefix,
				Type: "map[string]any",
			}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, deriveFieldDescriptors(typed[key], tree.Join(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: "[]" + elementType,
		}}
	default:
		return []FieldDescriptor{{
			Path: prefix,
			Type: typeName(typed),
		}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

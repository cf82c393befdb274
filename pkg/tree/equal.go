package tree

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// Equal reports whether a and b hold the same data, ignoring whether their
// containers are frozen. Functions are never equal unless both are nil.
func Equal(a, b any) bool {
	return cmp.Equal(Native(a), Native(b), exportAll)
}

// SameReference reports whether a and b are the same map, slice, pointer or
// frozen container instance. Scalars and functions are never references.
func SameReference(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.UnsafePointer:
		return !va.IsNil() && va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return !va.IsNil() && va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return false
	}
}

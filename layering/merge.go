// Package layering stacks scope defaults and state payloads. A stronger layer
// keeps every value it sets, including zero values; a weaker layer only fills
// nil slots and mapping keys the stronger one lacks. Results never share
// maps, slices or pointers with their inputs.
package layering

import "reflect"

// Clone returns a deep copy of value. Functions and channels are shared.
func Clone[T any](value T) T {
	cloned := detach(reflect.ValueOf(value))
	if !cloned.IsValid() || !cloned.CanInterface() {
		var zero T
		return zero
	}
	if out, ok := cloned.Interface().(T); ok {
		return out
	}
	return value
}

// MergeLayers stacks layers ordered from strongest to weakest.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}
	merged := detach(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = layer(reflect.ValueOf(layers[i]), merged)
	}
	if !merged.IsValid() || !merged.CanInterface() {
		return zero
	}
	out, _ := merged.Interface().(T)
	return out
}

func detach(v reflect.Value) reflect.Value {
	return layer(v, reflect.Value{})
}

// layer returns strong with weak underneath it. An invalid result stands for
// a nil interface.
func layer(strong, weak reflect.Value) reflect.Value {
	strong, weak = unwrap(strong), unwrap(weak)
	if !strong.IsValid() {
		if weak.IsValid() {
			return detach(weak)
		}
		return strong
	}
	sameType := weak.IsValid() && weak.Type() == strong.Type()

	switch strong.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if strong.IsNil() {
			if sameType {
				return detach(weak)
			}
			return strong
		}
	}

	switch strong.Kind() {
	case reflect.Pointer:
		out := reflect.New(strong.Type().Elem())
		var under reflect.Value
		if sameType && !weak.IsNil() {
			under = weak.Elem()
		}
		out.Elem().Set(fit(layer(strong.Elem(), under), out.Elem().Type()))
		return out
	case reflect.Struct:
		// The initial copy carries unexported fields.
		out := reflect.New(strong.Type()).Elem()
		out.Set(strong)
		for i := 0; i < out.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			var under reflect.Value
			if sameType {
				under = weak.Field(i)
			}
			field.Set(fit(layer(strong.Field(i), under), field.Type()))
		}
		return out
	case reflect.Map:
		elem := strong.Type().Elem()
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if sameType && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), fit(detach(iter.Value()), elem))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			key := iter.Key()
			out.SetMapIndex(key, fit(layer(iter.Value(), out.MapIndex(key)), elem))
		}
		return out
	case reflect.Slice:
		// Sequences are replaced whole, never merged item by item.
		elem := strong.Type().Elem()
		out := reflect.MakeSlice(strong.Type(), strong.Len(), strong.Len())
		for i := 0; i < strong.Len(); i++ {
			out.Index(i).Set(fit(detach(strong.Index(i)), elem))
		}
		return out
	case reflect.Array:
		out := reflect.New(strong.Type()).Elem()
		for i := 0; i < strong.Len(); i++ {
			var under reflect.Value
			if sameType {
				under = weak.Index(i)
			}
			out.Index(i).Set(fit(layer(strong.Index(i), under), out.Index(i).Type()))
		}
		return out
	default:
		return strong
	}
}

func unwrap(v reflect.Value) reflect.Value {
	if v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		return v.Elem()
	}
	return v
}

// fit returns v ready to be stored in a slot of type t.
func fit(v reflect.Value, t reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(t)
	}
	return v
}

package value

import (
	"math"
	"reflect"
)

// Equal reports whether a and b are structurally equal.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	return deepEqual(va, vb, make(map[visit]bool))
}

// visit records a pair of references already under comparison.
type visit struct {
	a1, a2 uintptr
	typ    reflect.Type
}

func deepEqual(v1, v2 reflect.Value, visited map[visit]bool) bool {
	if !v1.IsValid() || !v2.IsValid() {
		return v1.IsValid() == v2.IsValid()
	}
	if v1.Type() != v2.Type() {
		return false
	}

	switch v1.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		if seen(v1, v2, visited) {
			return true
		}
	}

	switch v1.Kind() {
	case reflect.Bool:
		return v1.Bool() == v2.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v1.Int() == v2.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v1.Uint() == v2.Uint()

	case reflect.Float32, reflect.Float64:
		return floatEqual(v1.Float(), v2.Float())

	case reflect.Complex64, reflect.Complex128:
		c1, c2 := v1.Complex(), v2.Complex()
		return floatEqual(real(c1), real(c2)) && floatEqual(imag(c1), imag(c2))

	case reflect.String:
		return v1.String() == v2.String()

	case reflect.Array:
		for i := 0; i < v1.Len(); i++ {
			if !deepEqual(v1.Index(i), v2.Index(i), visited) {
				return false
			}
		}
		return true

	case reflect.Slice:
		if v1.Len() != v2.Len() {
			return false
		}
		for i := 0; i < v1.Len(); i++ {
			if !deepEqual(v1.Index(i), v2.Index(i), visited) {
				return false
			}
		}
		return true

	case reflect.Map:
		if v1.Len() != v2.Len() {
			return false
		}
		iter := v1.MapRange()
		for iter.Next() {
			other := v2.MapIndex(iter.Key())
			if !other.IsValid() || !deepEqual(iter.Value(), other, visited) {
				return false
			}
		}
		return true

	case reflect.Pointer:
		if v1.IsNil() || v2.IsNil() {
			return v1.IsNil() && v2.IsNil()
		}
		if v1.Pointer() == v2.Pointer() {
			return true
		}
		return deepEqual(v1.Elem(), v2.Elem(), visited)

	case reflect.Interface:
		if v1.IsNil() || v2.IsNil() {
			return v1.IsNil() && v2.IsNil()
		}
		return deepEqual(v1.Elem(), v2.Elem(), visited)

	case reflect.Struct:
		for i := 0; i < v1.NumField(); i++ {
			if !deepEqual(v1.Field(i), v2.Field(i), visited) {
				return false
			}
		}
		return true

	case reflect.Func:
		return v1.IsNil() && v2.IsNil()

	case reflect.Chan, reflect.UnsafePointer:
		return v1.Pointer() == v2.Pointer()

	default:
		return false
	}
}

// seen marks the reference pair as visited and reports whether it already was.
func seen(v1, v2 reflect.Value, visited map[visit]bool) bool {
	if v1.IsNil() || v2.IsNil() {
		return false
	}
	a1, a2 := v1.Pointer(), v2.Pointer()
	if a1 == 0 || a2 == 0 {
		return false
	}
	if a1 > a2 {
		a1, a2 = a2, a1
	}
	key := visit{a1: a1, a2: a2, typ: v1.Type()}
	if visited[key] {
		return true
	}
	visited[key] = true
	return false
}

func floatEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

package value

import "reflect"

// Clone returns a deep copy of v.
//
// Slices, maps, pointers and interfaces are copied recursively. Exported
// struct fields are deep-copied; unexported fields are copied shallowly
// because reflection cannot assign through them. Funcs and channels are
// shared. Pointer aliasing inside v is preserved in the copy.
func Clone[T any](v T) T {
	src := reflect.ValueOf(&v).Elem()
	dst := reflect.New(src.Type()).Elem()
	copyValue(dst, src, make(map[uintptr]reflect.Value))
	return *(dst.Addr().Interface().(*T))
}

// CloneAny is Clone for values whose static type is unknown.
func CloneAny(v any) any {
	if v == nil {
		return nil
	}
	src := reflect.ValueOf(v)
	dst := reflect.New(src.Type()).Elem()
	copyValue(dst, src, make(map[uintptr]reflect.Value))
	return dst.Interface()
}

func copyValue(dst, src reflect.Value, pointers map[uintptr]reflect.Value) {
	switch src.Kind() {
	case reflect.Slice:
		if src.IsNil() {
			return
		}
		out := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			copyValue(out.Index(i), src.Index(i), pointers)
		}
		dst.Set(out)

	case reflect.Array:
		for i := 0; i < src.Len(); i++ {
			copyValue(dst.Index(i), src.Index(i), pointers)
		}

	case reflect.Map:
		if src.IsNil() {
			return
		}
		out := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			elem := reflect.New(src.Type().Elem()).Elem()
			copyValue(elem, iter.Value(), pointers)
			out.SetMapIndex(iter.Key(), elem)
		}
		dst.Set(out)

	case reflect.Pointer:
		if src.IsNil() {
			return
		}
		if prior, ok := pointers[src.Pointer()]; ok {
			dst.Set(prior)
			return
		}
		out := reflect.New(src.Elem().Type())
		pointers[src.Pointer()] = out
		copyValue(out.Elem(), src.Elem(), pointers)
		dst.Set(out)

	case reflect.Interface:
		if src.IsNil() {
			return
		}
		elem := src.Elem()
		out := reflect.New(elem.Type()).Elem()
		copyValue(out, elem, pointers)
		dst.Set(out)

	case reflect.Struct:
		dst.Set(src)
		for i := 0; i < src.NumField(); i++ {
			field := dst.Field(i)
			if !field.CanSet() {
				continue
			}
			copyValue(field, src.Field(i), pointers)
		}

	default:
		dst.Set(src)
	}
}

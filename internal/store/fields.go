package store

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/statebox/internal/value"
)

// TagName is the struct tag used to name store fields.
const TagName = "store"

// field describes one store field.
type field struct {
	key   string
	index int          // position in Snapshot.values
	path  int          // struct field index
	typ   reflect.Type // declared Go type
}

// fieldTable maps keys to fields for one state type. It is built once per
// store and never modified.
type fieldTable struct {
	typ    reflect.Type // struct type
	ptr    bool         // state is held as *struct
	fields []field
	byKey  map[string]int
	keys   []string
}

func newFieldTable(t reflect.Type) (*fieldTable, error) {
	table := &fieldTable{byKey: make(map[string]int)}

	if t.Kind() == reflect.Pointer {
		table.ptr = true
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("state must be a struct or pointer to struct, got %s", t)
	}
	table.typ = t

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		key := sf.Name
		if tag, ok := sf.Tag.Lookup(TagName); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				key = name
			}
		}
		if _, dup := table.byKey[key]; dup {
			return nil, &FieldError{Key: key, Reason: "duplicate field key"}
		}
		table.byKey[key] = len(table.fields)
		table.fields = append(table.fields, field{
			key:   key,
			index: len(table.fields),
			path:  i,
			typ:   sf.Type,
		})
		table.keys = append(table.keys, key)
	}

	if len(table.fields) == 0 {
		return nil, fmt.Errorf("state type %s has no exported fields", t)
	}
	return table, nil
}

func (t *fieldTable) lookup(key string) (*field, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return nil, false
	}
	return &t.fields[i], true
}

// structValue dereferences v to the underlying struct.
func (t *fieldTable) structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if t.ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("state must not be a nil pointer")
		}
		rv = rv.Elem()
	}
	return rv, nil
}

// extract deep-copies the tracked field values out of a state struct.
func (t *fieldTable) extract(rv reflect.Value) []any {
	values := make([]any, len(t.fields))
	for i, f := range t.fields {
		values[i] = value.CloneAny(rv.Field(f.path).Interface())
	}
	return values
}

// assemble builds a fresh state struct from template and values. Fields the
// store does not track keep the template's contents.
func (t *fieldTable) assemble(template reflect.Value, values []any) reflect.Value {
	out := reflect.New(t.typ).Elem()
	out.Set(template)
	for i, f := range t.fields {
		dst := out.Field(f.path)
		if values[i] == nil {
			dst.Set(reflect.Zero(f.typ))
			continue
		}
		dst.Set(reflect.ValueOf(value.CloneAny(values[i])))
	}
	return out
}

// coerce converts a candidate to the field's declared type.
func (f *field) coerce(candidate any) (any, error) {
	if candidate == nil {
		switch f.typ.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(f.typ).Interface(), nil
		}
		return nil, &TypeError{Key: f.key, Want: f.typ.String(), Got: "nil"}
	}

	rv := reflect.ValueOf(candidate)
	if !rv.Type().AssignableTo(f.typ) {
		return nil, &TypeError{Key: f.key, Want: f.typ.String(), Got: rv.Type().String()}
	}
	out := reflect.New(f.typ).Elem()
	out.Set(rv)
	return out.Interface(), nil
}

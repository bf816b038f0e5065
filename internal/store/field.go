package store

import (
	"reflect"

	"github.com/roach88/statebox/internal/emitter"
)

// Field is a typed handle on one store field.
type Field[S, V any] struct {
	store  *Store[S]
	key    string
	setter *Setter
}

// FieldOf returns a typed handle for key. V must be exactly the field's
// declared type.
func FieldOf[V, S any](s *Store[S], key string) (*Field[S, V], error) {
	f, ok := s.table.lookup(key)
	if !ok {
		return nil, s.unknown(key)
	}
	want := reflect.TypeFor[V]()
	if want != f.typ {
		return nil, &TypeError{Key: key, Want: f.typ.String(), Got: want.String()}
	}
	return &Field[S, V]{store: s, key: key, setter: s.setters[f.index]}, nil
}

// Key returns the field key.
func (f *Field[S, V]) Key() string {
	return f.key
}

// Get returns the current value.
func (f *Field[S, V]) Get() V {
	return cast[V](f.store.Get(f.key))
}

// Set writes v through the field's memoized setter.
func (f *Field[S, V]) Set(v V) error {
	return f.setter.Set(v)
}

// Setter returns the field's memoized setter.
func (f *Field[S, V]) Setter() *Setter {
	return f.setter
}

// On returns the typed stream of new values.
func (f *Field[S, V]) On() emitter.Observable[V] {
	return emitter.Map(f.store.On(f.key), cast[V])
}

func cast[V any](v any) V {
	if v == nil {
		var zero V
		return zero
	}
	return v.(V)
}

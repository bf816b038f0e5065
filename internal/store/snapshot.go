package store

import (
	"maps"
	"reflect"
	"slices"

	"github.com/roach88/statebox/internal/value"
)

// Snapshot is an immutable view of a store's state at one version.
//
// A Snapshot is never modified after construction. Pointer identity is the
// change detector: two reads returning the same *Snapshot saw the same state.
type Snapshot[S any] struct {
	version  int64
	table    *fieldTable
	template reflect.Value // untracked struct contents carried by State()
	values   []any
}

// Version returns the logical clock value stamped on this snapshot.
func (s *Snapshot[S]) Version() int64 {
	return s.version
}

// Get returns a deep copy of the value of key. It panics with a *FieldError
// for unknown keys.
func (s *Snapshot[S]) Get(key string) any {
	v, ok := s.Lookup(key)
	if !ok {
		panic(&FieldError{Key: key, Reason: "unknown field"})
	}
	return v
}

// Lookup returns a deep copy of the value of key and whether the key exists.
// Modifying the result never affects the snapshot.
func (s *Snapshot[S]) Lookup(key string) (any, bool) {
	f, ok := s.table.lookup(key)
	if !ok {
		return nil, false
	}
	return value.CloneAny(s.values[f.index]), true
}

// Keys returns the field keys in declaration order.
func (s *Snapshot[S]) Keys() []string {
	return slices.Clone(s.table.keys)
}

// State returns a deep copy of the state as the store's state type.
// Modifying the result never affects the store.
func (s *Snapshot[S]) State() S {
	rv := s.table.assemble(s.template, s.values)
	if s.table.ptr {
		p := reflect.New(s.table.typ)
		p.Elem().Set(rv)
		return p.Interface().(S)
	}
	return rv.Interface().(S)
}

// Map returns a deep copy of the state keyed by field key.
func (s *Snapshot[S]) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for i, key := range s.table.keys {
		out[key] = value.CloneAny(s.values[i])
	}
	return out
}

// with returns a new snapshot equal to s except for the value at index.
func (s *Snapshot[S]) with(index int, v any, version int64) *Snapshot[S] {
	values := slices.Clone(s.values)
	values[index] = v
	return &Snapshot[S]{
		version:  version,
		table:    s.table,
		template: s.template,
		values:   values,
	}
}

// Equal reports whether two snapshots hold structurally equal state,
// regardless of identity or version.
func (s *Snapshot[S]) Equal(other *Snapshot[S]) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return maps.EqualFunc(s.Map(), other.Map(), value.Equal)
}

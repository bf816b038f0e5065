package store

import "github.com/roach88/statebox/internal/emitter"

// View is a read-only snapshot whose concrete state type is erased.
// Views returned by Engine.View are *Snapshot values, so two views can be
// compared with == to detect change.
type View interface {
	Version() int64
	Get(key string) any
	Lookup(key string) (any, bool)
	Keys() []string
	Map() map[string]any
}

// Engine is the state-type-agnostic surface of a Store. It lets bindings and
// devtools work with stores of different state types side by side.
type Engine interface {
	Name() string
	Keys() []string
	Get(key string) any
	Lookup(key string) (any, bool)
	Set(key string) *Setter
	SetterFor(key string) (*Setter, error)
	On(key string) emitter.Observable[any]
	OnAll() emitter.Observable[Change]
	Version() int64
	View() View
	StateMap() map[string]any
}

var (
	_ Engine = (*Store[struct{ X int }])(nil)
	_ View   = (*Snapshot[struct{ X int }])(nil)
)

package store

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/roach88/statebox/internal/emitter"
	"github.com/roach88/statebox/internal/value"
)

// Store is the reactive state container for one state struct S.
type Store[S any] struct {
	name    string
	devMode bool
	logger  *slog.Logger

	table   *fieldTable
	current atomic.Pointer[Snapshot[S]]
	setters []*Setter // one per field, same order as table.fields
	clock   *Clock
	quota   *QuotaEnforcer

	emitter *emitter.Emitter[string, Change]
	befores *emitter.Emitter[string, Change]
}

// New creates a store holding initial. S must be a struct or a pointer to a
// struct; the store keeps its own deep copy of initial.
func New[S any](initial S, opts ...Option) (*Store[S], error) {
	return NewWithEffects(initial, nil, opts...)
}

// NewWithEffects creates a store and runs each effect once, in order, before
// returning. An effect error aborts construction.
func NewWithEffects[S any](initial S, effects []Effect[S], opts ...Option) (*Store[S], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if any(initial) == nil {
		return nil, fmt.Errorf("store %s: initial state must not be nil", o.name)
	}
	table, err := newFieldTable(reflect.TypeOf(initial))
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", o.name, err)
	}
	rv, err := table.structValue(value.Clone(initial))
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", o.name, err)
	}

	emitterOpts := []emitter.Option{
		emitter.WithLogger(o.logger),
		emitter.WithMaxDepth(o.maxDepth),
	}
	s := &Store[S]{
		name:    o.name,
		devMode: o.devMode,
		logger:  o.logger,
		table:   table,
		clock:   NewClock(),
		quota:   NewQuotaEnforcer(o.maxSteps),
		emitter: emitter.New[string, Change](emitterOpts...),
		befores: emitter.New[string, Change](emitterOpts...),
	}

	s.current.Store(&Snapshot[S]{
		version:  s.clock.Next(),
		table:    table,
		template: rv,
		values:   table.extract(rv),
	})

	s.setters = make([]*Setter, len(table.fields))
	for i := range table.fields {
		f := &table.fields[i]
		s.setters[i] = &Setter{
			key: f.key,
			set: func(v any) error { return s.commit(f, v) },
		}
	}

	for i, effect := range effects {
		if effect == nil {
			continue
		}
		if err := effect(s); err != nil {
			return nil, fmt.Errorf("store %s: effect %d: %w", o.name, i, err)
		}
	}

	s.logger.Debug("store created",
		"store", s.name,
		"fields", len(table.fields),
		"effects", len(effects),
	)
	return s, nil
}

// Name returns the store name.
func (s *Store[S]) Name() string {
	return s.name
}

// Keys returns the field keys in declaration order.
func (s *Store[S]) Keys() []string {
	return slices.Clone(s.table.keys)
}

// Get returns a deep copy of the current value of key. It panics with a
// *FieldError for unknown keys.
func (s *Store[S]) Get(key string) any {
	v, ok := s.Lookup(key)
	if !ok {
		panic(s.unknown(key))
	}
	return v
}

// Lookup returns a deep copy of the current value of key and whether the key
// exists.
func (s *Store[S]) Lookup(key string) (any, bool) {
	return s.current.Load().Lookup(key)
}

// Set returns the memoized setter for key. It panics with a *FieldError for
// unknown keys.
func (s *Store[S]) Set(key string) *Setter {
	setter, err := s.SetterFor(key)
	if err != nil {
		panic(err)
	}
	return setter
}

// SetterFor returns the memoized setter for key, or a *FieldError.
func (s *Store[S]) SetterFor(key string) (*Setter, error) {
	f, ok := s.table.lookup(key)
	if !ok {
		return nil, s.unknown(key)
	}
	return s.setters[f.index], nil
}

// On returns the stream of new values for key.
func (s *Store[S]) On(key string) emitter.Observable[any] {
	return emitter.Map(s.OnChange(key), func(c Change) any { return c.Value })
}

// OnChange returns the stream of change records for key.
func (s *Store[S]) OnChange(key string) emitter.Observable[Change] {
	s.mustHave(key)
	return s.emitter.On(key)
}

// OnAll returns the stream of change records for every field, in emission
// order.
func (s *Store[S]) OnAll() emitter.Observable[Change] {
	return s.emitter.All()
}

// Before returns the stream of pending changes for key. Handlers run after
// the equality check and before the commit; an error vetoes the change.
func (s *Store[S]) Before(key string) emitter.Observable[Change] {
	s.mustHave(key)
	return s.befores.On(key)
}

// BeforeAll is Before for every field.
func (s *Store[S]) BeforeAll() emitter.Observable[Change] {
	return s.befores.All()
}

// CurrentSnapshot returns the current snapshot. Its identity changes exactly
// once per accepted mutation.
func (s *Store[S]) CurrentSnapshot() *Snapshot[S] {
	return s.current.Load()
}

// View returns the current snapshot as a View.
func (s *Store[S]) View() View {
	return s.current.Load()
}

// Version returns the version of the current snapshot.
func (s *Store[S]) Version() int64 {
	return s.current.Load().Version()
}

// State returns a deep copy of the current state.
func (s *Store[S]) State() S {
	return s.current.Load().State()
}

// StateMap returns a deep copy of the current state keyed by field key.
func (s *Store[S]) StateMap() map[string]any {
	return s.current.Load().Map()
}

// Dispatching reports whether a change dispatch is in progress.
func (s *Store[S]) Dispatching() bool {
	return s.emitter.Depth() > 0 || s.befores.Depth() > 0
}

// commit is the single write path behind every Setter.
func (s *Store[S]) commit(f *field, candidate any) error {
	next, err := f.coerce(candidate)
	if err != nil {
		return err
	}

	prev := s.current.Load().values[f.index]
	if value.Equal(prev, next) {
		return nil
	}
	// The snapshot keeps its own copy; subscribers get theirs.
	stored := value.CloneAny(next)
	change := Change{Key: f.key, PreviousValue: value.CloneAny(prev), Value: value.CloneAny(next)}

	// A write re-entering a key whose dispatch is in flight is dropped
	// before it can touch the snapshot.
	if err := s.emitter.Check(f.key); err != nil {
		return s.fail(err, change)
	}

	top := !s.Dispatching()
	if err := s.befores.Emit(f.key, change); err != nil {
		return s.fail(err, change)
	}

	if top {
		s.quota.Reset()
	}
	if err := s.quota.Check(s.name, f.key); err != nil {
		return s.fail(err, change)
	}

	snap := s.current.Load().with(f.index, stored, s.clock.Next())
	change.Version = snap.version
	s.current.Store(snap)

	s.logger.Debug("state changed",
		"store", s.name,
		"key", f.key,
		"version", snap.version,
		"depth", s.emitter.Depth(),
	)

	if err := s.emitter.Emit(f.key, change); err != nil {
		return s.fail(err, change)
	}
	return nil
}

// fail reports an aborted mutation once, at the outermost Set, and returns
// err unchanged.
func (s *Store[S]) fail(err error, change Change) error {
	if !s.devMode || s.Dispatching() {
		return err
	}

	var (
		cycle *emitter.CycleError
		depth *emitter.DepthError
		quota *QuotaError
	)
	switch {
	case errors.As(err, &cycle):
		s.logger.Warn("cyclical mutation detected",
			"store", s.name,
			"chain", cycle.Path(),
			"key", change.Key,
			"value", change.Value,
		)
	case errors.As(err, &depth):
		s.logger.Warn("emission chain too deep",
			"store", s.name,
			"limit", depth.Limit,
			"key", change.Key,
		)
	case errors.As(err, &quota):
		s.logger.Warn("max steps quota exceeded",
			"store", s.name,
			"key", quota.Key,
			"steps", quota.Steps,
			"limit", quota.Limit,
		)
	}
	return err
}

func (s *Store[S]) mustHave(key string) {
	if _, ok := s.table.lookup(key); !ok {
		panic(s.unknown(key))
	}
}

func (s *Store[S]) unknown(key string) *FieldError {
	return &FieldError{Store: s.name, Key: key, Reason: "unknown field"}
}

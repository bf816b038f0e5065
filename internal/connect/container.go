package connect

import (
	"context"
	"fmt"

	"github.com/roach88/statebox/internal/store"
)

// Container builds stores of one state type and mounts them into contexts.
// Each Provide creates an independent store; nothing is shared globally.
type Container[S any] struct {
	name    string
	initial S
	effects []store.Effect[S]
	key     *containerKey
}

// containerKey is unique per Container, so two containers with the same
// state type never see each other's stores.
type containerKey struct {
	name string
}

// NewContainer creates a container whose stores start from initial and run
// effects on construction.
func NewContainer[S any](name string, initial S, effects ...store.Effect[S]) *Container[S] {
	return &Container[S]{
		name:    name,
		initial: initial,
		effects: effects,
		key:     &containerKey{name: name},
	}
}

// Name returns the container name.
func (c *Container[S]) Name() string {
	return c.name
}

// Props overrides a container's defaults for one store. A nil Initial keeps
// the container's initial state. A nil Effects keeps the container's
// effects; a non-nil empty slice runs none.
type Props[S any] struct {
	Initial *S
	Effects []store.Effect[S]
}

// Provide creates a new store and returns a child context carrying it.
// The store is named after the container unless opts override it.
func (c *Container[S]) Provide(ctx context.Context, opts ...store.Option) (context.Context, *store.Store[S], error) {
	return c.ProvideWith(ctx, Props[S]{}, opts...)
}

// ProvideWith is Provide with per-store overrides of the initial state and
// effects.
func (c *Container[S]) ProvideWith(ctx context.Context, props Props[S], opts ...store.Option) (context.Context, *store.Store[S], error) {
	initial, effects := c.initial, c.effects
	if props.Initial != nil {
		initial = *props.Initial
	}
	if props.Effects != nil {
		effects = props.Effects
	}

	opts = append([]store.Option{store.WithName(c.name)}, opts...)
	s, err := store.NewWithEffects(initial, effects, opts...)
	if err != nil {
		return ctx, nil, fmt.Errorf("provide %s: %w", c.name, err)
	}
	return context.WithValue(ctx, c.key, s), s, nil
}

// From returns the store provided for this container in ctx.
func (c *Container[S]) From(ctx context.Context) (*store.Store[S], error) {
	if ctx != nil {
		if s, ok := ctx.Value(c.key).(*store.Store[S]); ok {
			return s, nil
		}
	}
	return nil, &MissingContextError{Container: c.name}
}

// MustFrom is From for callers that treat a missing provider as fatal.
func (c *Container[S]) MustFrom(ctx context.Context) *store.Store[S] {
	s, err := c.From(ctx)
	if err != nil {
		panic(err)
	}
	return s
}

// UseField returns the current value of key and its memoized setter, typed
// as V, from the store provided in ctx.
func UseField[V, S any](ctx context.Context, c *Container[S], key string) (V, func(V) error, error) {
	var zero V
	s, err := c.From(ctx)
	if err != nil {
		return zero, nil, err
	}
	f, err := store.FieldOf[V](s, key)
	if err != nil {
		return zero, nil, err
	}
	return f.Get(), f.Set, nil
}

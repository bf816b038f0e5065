package emitter

import (
	"fmt"
	"log/slog"
	"slices"
)

// DefaultMaxDepth is the default cap on the emission chain length.
const DefaultMaxDepth = 256

// Option configures an Emitter.
type Option func(*config)

type config struct {
	maxDepth  int
	logger    *slog.Logger
	formatKey func(any) string
}

// WithMaxDepth caps the emission chain length. Values below 1 disable the
// cap, leaving cycle detection as the only bound.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		c.maxDepth = n
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithFormatKey sets how keys are rendered in chain diagnostics.
// The default is fmt.Sprint.
func WithFormatKey(f func(any) string) Option {
	return func(c *config) {
		c.formatKey = f
	}
}

// Emitter is a synchronous keyed publish/subscribe hub with cycle detection.
type Emitter[K comparable, V any] struct {
	maxDepth  int
	logger    *slog.Logger
	formatKey func(any) string

	channels map[K]*channel[V]
	all      *channel[V]

	// chain holds the keys whose dispatch is in flight, outermost first.
	chain []K
}

// New creates an Emitter.
func New[K comparable, V any](opts ...Option) *Emitter[K, V] {
	cfg := config{
		maxDepth:  DefaultMaxDepth,
		formatKey: func(k any) string { return fmt.Sprint(k) },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Emitter[K, V]{
		maxDepth:  cfg.maxDepth,
		logger:    cfg.logger,
		formatKey: cfg.formatKey,
		channels:  make(map[K]*channel[V]),
		all:       &channel[V]{},
	}
}

// On returns the observable for values emitted on key.
func (e *Emitter[K, V]) On(key K) Observable[V] {
	return keyed[K, V]{emitter: e, key: key}
}

// All returns the observable receiving every emitted value, in emission order.
func (e *Emitter[K, V]) All() Observable[V] {
	return aggregate[K, V]{emitter: e}
}

// Emit publishes value on key: first to On(key) subscribers, then to All()
// subscribers. It returns after every subscriber, including nested emits,
// has run.
//
// Emit returns the error from Check without dispatching anything. Otherwise
// it returns the first error returned by a subscriber. An On(key) error stops
// the remaining On(key) subscribers, but the value still reaches every All()
// subscriber.
func (e *Emitter[K, V]) Emit(key K, value V) error {
	if err := e.Check(key); err != nil {
		return err
	}

	e.chain = append(e.chain, key)
	defer func() {
		e.chain = e.chain[:len(e.chain)-1]
	}()

	var first error
	if ch, ok := e.channels[key]; ok {
		first = ch.dispatch(value)
	}
	if err := e.all.dispatchAll(value); first == nil {
		first = err
	}
	return first
}

// Check reports the error Emit would return for key before any subscriber
// runs: a *CycleError when key is already in the emission chain, a
// *DepthError when the chain is full.
func (e *Emitter[K, V]) Check(key K) error {
	if e.Active(key) {
		err := &CycleError{Chain: e.render(append(slices.Clone(e.chain), key))}
		e.logger.Debug("emission cycle detected",
			"key", e.formatKey(key),
			"chain", err.Path(),
		)
		return err
	}
	if e.maxDepth > 0 && len(e.chain) >= e.maxDepth {
		return &DepthError{Limit: e.maxDepth, Chain: e.render(append(slices.Clone(e.chain), key))}
	}
	return nil
}

// Active reports whether a dispatch for key is in flight.
func (e *Emitter[K, V]) Active(key K) bool {
	return slices.Contains(e.chain, key)
}

// Chain returns a copy of the keys whose dispatch is in flight.
func (e *Emitter[K, V]) Chain() []K {
	return slices.Clone(e.chain)
}

// Depth returns the current emission chain length. Zero means no dispatch
// is in progress.
func (e *Emitter[K, V]) Depth() int {
	return len(e.chain)
}

// Len returns the number of active subscribers on key.
func (e *Emitter[K, V]) Len(key K) int {
	if ch, ok := e.channels[key]; ok {
		return len(ch.subscribers)
	}
	return 0
}

// LenAll returns the number of active aggregate subscribers.
func (e *Emitter[K, V]) LenAll() int {
	return len(e.all.subscribers)
}

func (e *Emitter[K, V]) render(keys []K) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = e.formatKey(k)
	}
	return out
}

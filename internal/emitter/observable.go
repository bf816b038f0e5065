package emitter

import (
	"slices"
	"sync/atomic"
)

// Handler receives one published value. A non-nil error is returned to the
// emitting caller. On a keyed channel it also stops the remaining handlers.
type Handler[V any] func(V) error

// Observable is a lazy, restartable, multicast subscription point.
// Subscribing never replays past values.
type Observable[V any] interface {
	Subscribe(h Handler[V]) *Subscription
}

// Subscription is the disposer returned by Subscribe.
type Subscription struct {
	closed  atomic.Bool
	dispose func()
}

func newSubscription(dispose func()) *Subscription {
	return &Subscription{dispose: dispose}
}

// Unsubscribe stops delivery to the subscriber. Repeated calls are no-ops.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	if s.closed.CompareAndSwap(false, true) && s.dispose != nil {
		s.dispose()
	}
}

// Closed reports whether Unsubscribe has been called.
func (s *Subscription) Closed() bool {
	return s == nil || s.closed.Load()
}

// subscriber pairs a handler with its subscription state.
type subscriber[V any] struct {
	handler Handler[V]
	sub     *Subscription
}

// channel is one dispatch list.
type channel[V any] struct {
	subscribers []*subscriber[V]
}

func (c *channel[V]) subscribe(h Handler[V]) *Subscription {
	s := &subscriber[V]{handler: h}
	s.sub = newSubscription(func() { c.remove(s) })
	c.subscribers = append(c.subscribers, s)
	return s.sub
}

func (c *channel[V]) remove(s *subscriber[V]) {
	if i := slices.Index(c.subscribers, s); i >= 0 {
		c.subscribers = slices.Delete(c.subscribers, i, i+1)
	}
}

// dispatch delivers v to the subscribers registered when it was called.
func (c *channel[V]) dispatch(v V) error {
	if len(c.subscribers) == 0 {
		return nil
	}
	captured := slices.Clone(c.subscribers)
	for _, s := range captured {
		if s.sub.Closed() {
			continue
		}
		if err := s.handler(v); err != nil {
			return err
		}
	}
	return nil
}

// dispatchAll delivers v to every subscriber registered when it was called
// and returns the first error.
func (c *channel[V]) dispatchAll(v V) error {
	var first error
	for _, s := range slices.Clone(c.subscribers) {
		if s.sub.Closed() {
			continue
		}
		if err := s.handler(v); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// keyed is the observable returned by Emitter.On. The channel is created on
// first subscription.
type keyed[K comparable, V any] struct {
	emitter *Emitter[K, V]
	key     K
}

func (o keyed[K, V]) Subscribe(h Handler[V]) *Subscription {
	ch, ok := o.emitter.channels[o.key]
	if !ok {
		ch = &channel[V]{}
		o.emitter.channels[o.key] = ch
	}
	return ch.subscribe(h)
}

// aggregate is the observable returned by Emitter.All.
type aggregate[K comparable, V any] struct {
	emitter *Emitter[K, V]
}

func (o aggregate[K, V]) Subscribe(h Handler[V]) *Subscription {
	return o.emitter.all.subscribe(h)
}

// Map adapts an observable so subscribers receive f(v) instead of v.
func Map[A, B any](src Observable[A], f func(A) B) Observable[B] {
	return mapped[A, B]{src: src, f: f}
}

type mapped[A, B any] struct {
	src Observable[A]
	f   func(A) B
}

func (m mapped[A, B]) Subscribe(h Handler[B]) *Subscription {
	return m.src.Subscribe(func(a A) error {
		return h(m.f(a))
	})
}

// Func adapts a handler that cannot fail.
func Func[V any](f func(V)) Handler[V] {
	return func(v V) error {
		f(v)
		return nil
	}
}

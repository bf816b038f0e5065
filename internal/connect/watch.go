package connect

import (
	"maps"
	"slices"

	"github.com/roach88/statebox/internal/emitter"
	"github.com/roach88/statebox/internal/store"
)

// Watcher re-renders a consumer of one store. Render runs once on Watch and
// afterwards only when the store's current snapshot is a different object
// than the one last rendered.
type Watcher[S any] struct {
	store   *store.Store[S]
	render  func(*store.Snapshot[S])
	last    *store.Snapshot[S]
	sub     *emitter.Subscription
	renders int
}

// Watch subscribes render to s.
func Watch[S any](s *store.Store[S], render func(*store.Snapshot[S])) *Watcher[S] {
	w := &Watcher[S]{store: s, render: render}
	w.sub = s.OnAll().Subscribe(emitter.Func(func(store.Change) { w.Refresh() }))
	w.Refresh()
	return w
}

// Refresh renders if the snapshot changed since the last render and reports
// whether it did.
func (w *Watcher[S]) Refresh() bool {
	if w.sub.Closed() {
		return false
	}
	snap := w.store.CurrentSnapshot()
	if snap == w.last {
		return false
	}
	w.last = snap
	w.renders++
	w.render(snap)
	return true
}

// Renders returns how many times render has been called.
func (w *Watcher[S]) Renders() int {
	return w.renders
}

// Close stops watching. Repeated calls are no-ops.
func (w *Watcher[S]) Close() {
	w.sub.Unsubscribe()
}

// Stores maps an alias to a store engine, for consumers and effects that
// span several stores.
type Stores map[string]store.Engine

// Aliases returns the aliases in sorted order.
func (s Stores) Aliases() []string {
	return slices.Sorted(maps.Keys(s))
}

// MultiWatcher re-renders a consumer of several stores when any of their
// snapshots changed.
type MultiWatcher struct {
	stores Stores
	render func(map[string]store.View)
	last   map[string]store.View
	subs   []*emitter.Subscription
	closed bool
}

// ConnectAs subscribes render to every store in stores. Render receives the
// current view of each store keyed by alias.
func ConnectAs(stores Stores, render func(map[string]store.View)) *MultiWatcher {
	w := &MultiWatcher{stores: stores, render: render}
	for _, alias := range stores.Aliases() {
		sub := stores[alias].OnAll().Subscribe(emitter.Func(func(store.Change) { w.Refresh() }))
		w.subs = append(w.subs, sub)
	}
	w.Refresh()
	return w
}

// Refresh renders if any store's view changed since the last render.
func (w *MultiWatcher) Refresh() bool {
	if w.closed {
		return false
	}
	views := make(map[string]store.View, len(w.stores))
	for alias, s := range w.stores {
		views[alias] = s.View()
	}
	if w.last != nil && maps.Equal(views, w.last) {
		return false
	}
	w.last = views
	w.render(maps.Clone(views))
	return true
}

// Close stops watching every store.
func (w *MultiWatcher) Close() {
	w.closed = true
	for _, sub := range w.subs {
		sub.Unsubscribe()
	}
}

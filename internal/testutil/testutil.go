// Package testutil holds helpers shared by tests of packages built on top
// of the store.
package testutil

import (
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/statebox/internal/emitter"
	"github.com/roach88/statebox/internal/store"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Quiet returns a store option installing DiscardLogger.
func Quiet() store.Option {
	return store.WithLogger(DiscardLogger())
}

// ChangeLog records every change a store emits through OnAll.
//
// Thread-safety: All methods are safe for concurrent use.
type ChangeLog struct {
	mu      sync.Mutex
	changes []store.Change
	sub     *emitter.Subscription
}

// Collect subscribes a new ChangeLog to e.
func Collect(e store.Engine) *ChangeLog {
	l := &ChangeLog{}
	l.sub = e.OnAll().Subscribe(emitter.Func(func(c store.Change) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.changes = append(l.changes, c)
	}))
	return l
}

// Changes returns a copy of the recorded changes in emission order.
func (l *ChangeLog) Changes() []store.Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]store.Change(nil), l.changes...)
}

// Keys returns the key of every recorded change in emission order.
func (l *ChangeLog) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, len(l.changes))
	for i, c := range l.changes {
		keys[i] = c.Key
	}
	return keys
}

// Len returns the number of recorded changes.
func (l *ChangeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.changes)
}

// Reset drops the recorded changes. Recording continues.
func (l *ChangeLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = nil
}

// Close stops recording. Repeated calls are no-ops.
func (l *ChangeLog) Close() {
	l.sub.Unsubscribe()
}

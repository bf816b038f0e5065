// Package emitter implements a typed, synchronous publish/subscribe hub
// keyed by field name.
//
// DISPATCH MODEL:
//
// Emit runs every subscriber inline on the caller's goroutine before it
// returns. For a single Emit, subscribers of On(key) run first, then
// subscribers of All(), each group in subscription order. A subscriber that
// emits again (an effect) runs its nested dispatch to completion before the
// outer dispatch continues, so delivery is depth-first.
//
// Each dispatch iterates the subscriber list captured when it started.
// Subscribers added during a dispatch first receive the next one; a
// subscriber disposed during a dispatch is skipped if it has not run yet.
//
// A subscriber error stops the remaining On(key) subscribers, but All()
// subscribers always receive the value. Emit returns the first error.
//
// EMISSION CHAIN:
//
// The emitter keeps the ordered list of keys whose dispatch is in flight.
// Emitting a key that is already in the chain returns a *CycleError naming
// the full chain ("a -> b -> a") instead of recursing. The chain length is
// additionally capped by WithMaxDepth, so recursion is bounded even for an
// unbounded key space. Check and Active expose the same test so a caller
// can refuse a write before it has any effect.
//
// The emitter is not safe for concurrent use. Like the rest of the store it
// has a single logical owner.
package emitter

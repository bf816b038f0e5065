// Package store implements the snapshot-based reactive state container.
//
// A Store owns one Go struct value. Each exported field is a store field,
// keyed by its `store:"name"` tag or, without a tag, by the Go field name.
// Every accepted mutation replaces the current *Snapshot with a new one, so
// consumers can detect "nothing changed" by comparing snapshot pointers.
//
// WRITE PATH:
//
// Set(key) returns the memoized *Setter for key. Setter.Set:
//  1. checks the candidate is assignable to the field type (*TypeError),
//  2. compares it structurally with the current value (value.Equal) and
//     returns early when equal,
//  3. refuses a write to a field whose dispatch is in flight
//     (*emitter.CycleError) or one past the depth limit,
//  4. runs Before hooks, any of which may veto the change,
//  5. enforces the per-call step quota (*QuotaError),
//  6. swaps in a new snapshot, then
//  7. emits the Change on the key's channel and the aggregate channel.
//
// Subscribers run synchronously inside Set and may call other setters. A
// re-entrant write is dropped before it touches the snapshot, and the
// *emitter.CycleError naming the chain ("a -> b -> a") is returned to the
// caller of the outermost Set. Mutations committed earlier in the chain stay
// committed, and each of them still reaches the aggregate channel.
//
// Reads never alias the snapshot. Get, Lookup, Field.Get and the values in
// a Change are deep copies.
//
// CONCURRENCY:
//
// A Store has a single logical owner. Set, Subscribe and Unsubscribe must
// be called from one goroutine at a time; calling them concurrently is
// undefined behavior and is not detected. The current snapshot pointer is
// atomic, so Get, Lookup, CurrentSnapshot, View and State may be called from
// any goroutine and always observe a complete snapshot.
package store

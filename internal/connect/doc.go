// Package connect binds stores to their consumers.
//
// A Container describes how to build one kind of store. Provide mounts a
// fresh store into a context.Context, and From retrieves it further down the
// call tree. Reading a store from a context with no provider in scope is a
// programmer error reported as *MissingContextError.
//
// Watcher and MultiWatcher re-render a consumer only when the snapshot
// identity of the stores it depends on changed.
package connect

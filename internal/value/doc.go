// Package value implements structural comparison and deep copying of the
// values held by a store.
//
// Equal is the change detector used by every setter: a candidate value that
// is structurally equal to the current one never produces a snapshot or an
// event. Clone produces the defensive copies that keep snapshots immutable
// from the caller's point of view.
//
// Equality rules:
//   - Both operands must have the same dynamic type (int(1) != int64(1)).
//   - Scalars compare by value; NaN is equal to NaN.
//   - Arrays, slices, maps and structs compare element by element, including
//     unexported struct fields. A nil slice or map equals an empty one.
//   - Pointers are equal when identical or when their pointees are equal.
//   - Funcs are equal only when both are nil; channels by identity.
//
// Cyclic object graphs are not supported as store values. Both functions
// track visited pointers so a cycle terminates, but the result for cyclic
// input is unspecified.
package value

// Package spec compiles declarative store definitions written in CUE.
//
// A definition names a store, its initial state and its effects:
//
//	store: counter: {
//		state: {count: 0, doubled: 0}
//		effects: [{when: "count", set: "doubled", to: "value * 2"}]
//	}
//
// Each effect is a rule: when field `when` changes, evaluate the expr-lang
// expression `to` and write the result to field `set`. An optional `if`
// expression guards the rule. Expressions see:
//
//	value     the new value of `when`
//	previous  the value of `when` before the change
//	key       the name of `when`
//	state     the whole state as a map
//
// Guards veto pending changes: a guard's `reject` expression runs before
// the commit with `value` bound to the candidate, and a true result fails
// the Set with *VetoError.
//
// Build turns a Definition into a live *store.Store[any]. AnalyzeCycles
// reports effect chains that can re-enter a field before its dispatch ends,
// which the store would reject at run time with a cycle error.
package spec

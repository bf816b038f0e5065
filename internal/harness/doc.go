// Package harness runs YAML scenarios against definition-built stores.
//
// A scenario declares a store (inline, or by pointing at a CUE file), a
// list of steps that write fields, and assertions over the resulting
// change trace and final state:
//
//	name: counter_doubles
//	description: doubled follows count
//	state: {count: 0, doubled: 0}
//	effects:
//	  - {when: count, set: doubled, to: "value * 2"}
//	steps:
//	  - {set: count, value: 1}
//	  - {set: count, value: 1}
//	assertions:
//	  - {type: trace_count, key: count, count: 1}
//	  - {type: final_state, expect: {count: 1, doubled: 2}}
//
// Every run starts from a fresh store. The trace is the store's OnAll
// stream, so nested effect changes appear before the change that caused
// them. RunWithGolden compares the trace with testdata/golden/<name>.golden.
package harness

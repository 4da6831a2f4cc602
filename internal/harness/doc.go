// Package harness runs scripted scenarios against a bridged store.
//
// A scenario names a CUE catalog declaring the state tree, then drives the
// store step by step, either by dispatching actions to the log or by
// triggering mutations on the tree directly. Every step is recorded in a
// trace that can be compared against a golden file.
//
// # Scenario Format
//
//	name: commit_then_init
//	description: "Committed state survives a re-initialization"
//	catalog: ../catalogs/counter.cue
//	session: demo
//	steps:
//	  - dispatch: increment
//	    args: [5]
//	    expect_state: { count: 5 }
//	  - dispatch: COMMIT
//	  - trigger: increment
//	    args: [3]
//	  - dispatch: "@@INIT"
//	    expect_state: { count: 5 }
//	  - dispatch: JUMP_TO_STATE
//	    args: [9]
//	    expect_error: out of range
//	assertions:
//	  - type: history_count
//	    action: increment
//	    count: 1
//	  - type: final_state
//	    path: count
//	    expect: 5
//
// The catalog path is resolved relative to the scenario file.
package harness

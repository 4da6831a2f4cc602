// Package actionlog implements a time-travel action log.
//
// The log keeps every dispatched application action together with the state
// it produced. Tool actions (COMMIT, ROLLBACK, RESET, JUMP_TO_STATE,
// TOGGLE_ACTION, SWEEP) rewrite the history itself and are never recorded.
//
// STATE MODEL:
//
//	committed  snapshot every recomputation starts from (nil = reducer default)
//	entries    [@@INIT, a1, a2, ...] with stable ids; entry 0 has id 0
//	computed   one state per entry; computed[i] = reduce(computed[i-1], entries[i])
//	current    index of the state being shown
//
// State is never computed by the log itself. Every computed state is the
// value the Reducer returned, so a reducer backed by an external tree keeps
// that tree in step with the history the log shows.
//
// Log is not safe for concurrent use.
package actionlog

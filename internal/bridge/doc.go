// Package bridge keeps a state tree and an action log consistent.
//
// Data flows two ways:
//
//	tree mutation -> notification -> Guard check -> PERFORM_ACTION -> log dispatch
//	log dispatch  -> Bridge.Reduce -> Guard armed -> tree replay -> snapshot read-back
//
// The tree is the single source of truth. Reduce always returns the tree's
// current snapshot; the log never computes state on its own.
//
// LOOP PREVENTION:
// Before Reduce replays an action into the tree it arms the Guard. The
// replay fires exactly one synchronous notification, which consumes the
// Guard instead of forwarding the mutation back to the log. A replay that
// fails before notifying disarms the Guard so it cannot swallow an unrelated
// notification later.
//
// The Guard belongs to one Bridge. Two bridges over two trees never share
// suppression state.
//
// CHECKPOINTS:
// Controller holds the committed baseline restored on every @@INIT. Its
// Middleware wraps the log's dispatch function and, on COMMIT, adopts the
// most recent computed state before the log collapses its history.
package bridge

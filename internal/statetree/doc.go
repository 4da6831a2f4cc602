// Package statetree defines the capability interface the bridge requires
// from a mutable, observable state tree, and a reference Tree implementing it.
//
// A tree exposes four capabilities:
//   - Read the current snapshot
//   - Replace the snapshot wholesale (used on log initialization)
//   - Replay a named mutation with arguments
//   - Subscribe to the wildcard "a mutation occurred" notification
//
// Replay must run every subscriber synchronously before it returns. The
// bridge's loop suppression depends on it.
package statetree

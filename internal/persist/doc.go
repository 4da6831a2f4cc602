// Package persist stores action log sessions in SQLite.
//
// A session is one actionlog.LiftedState: the committed snapshot, the
// recorded entries, which of them are skipped, and the index on display.
// Computed states are not stored; they are rebuilt by replaying the entries
// through the bridge on load.
//
// Values are written as RFC 8785 canonical JSON with a domain-separated
// SHA-256 digest next to them. Load verifies both before handing anything
// back, so a hand-edited or truncated row fails loudly instead of replaying
// into a live state tree.
//
// Session ids come from ResolveSession (explicit token, else the
// debug_session query parameter of a debug URL) or NewSessionID.
package persist

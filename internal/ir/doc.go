// Package ir provides the value types shared by the state tree, the bridge
// and the action log.
//
// This package contains types and their encodings only. Every other internal
// package imports ir; ir imports nothing internal.
//
// Key constraints:
//   - Value is sealed: Null, String, Int, Bool, Array, Object
//   - No float type, so snapshot digests are stable across runs
//   - Action JSON shape is {"kind": string, "args": [...]}
//   - Digests use RFC 8785 canonical JSON and SHA-256 with domain separation
package ir

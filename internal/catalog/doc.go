// Package catalog compiles CUE tree declarations into state trees.
//
// A catalog file declares the initial snapshot and a set of named mutations,
// each one a path-addressed operation on the snapshot:
//
//	tree: {
//		initial: { count: 0, items: [] }
//		mutation: {
//			increment: { op: "add", path: "count" }
//			decrement: { op: "sub", path: "count" }
//			push:      { op: "append", path: "items" }
//		}
//	}
//
// Operations:
//   - set:    path = args[0]
//   - add:    path += args[0] (default when no args, itself defaulting to 1)
//   - sub:    path -= args[0] (same defaulting as add)
//   - append: path = append(path, args...)
//   - delete: remove the last path key from its parent object
//
// Floats are rejected anywhere in the catalog, as they are everywhere in the
// value model.
package catalog

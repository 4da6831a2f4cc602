// Package assembly is the composition root. Build wires a state tree, the
// bridge, the action log and optional session persistence into one Store.
//
// Dispatch pipeline, outermost first:
//
//	tracing span -> reentrancy check -> persistence save -> Controller -> actionlog.Log -> Bridge.Reduce
//
// Tree mutations made by the application reach the same pipeline through
// the bridge, wrapped as PERFORM_ACTION.
package assembly

package ir

import (
	"fmt"
)

// Reserved action kinds. Any other kind names an application mutation and is
// replayed verbatim into the state tree.
const (
	// KindInit initializes the log and restores the committed snapshot.
	KindInit = "@@INIT"

	// KindCommit makes the latest computed state the new baseline.
	KindCommit = "COMMIT"

	// KindPerform wraps an action the state tree has already applied.
	// The log records the inner action; the bridge does not replay it.
	KindPerform = "PERFORM_ACTION"

	// KindRollback discards uncommitted actions.
	KindRollback = "ROLLBACK"

	// KindReset discards every commit and uncommitted action.
	KindReset = "RESET"

	// KindJumpToState shows the computed state at Args[0].
	KindJumpToState = "JUMP_TO_STATE"

	// KindToggleAction skips or un-skips the entry with id Args[0].
	KindToggleAction = "TOGGLE_ACTION"

	// KindSweep removes skipped entries from the history.
	KindSweep = "SWEEP"
)

var toolKinds = map[string]bool{
	KindCommit:       true,
	KindPerform:      true,
	KindRollback:     true,
	KindReset:        true,
	KindJumpToState:  true,
	KindToggleAction: true,
	KindSweep:        true,
}

// IsToolKind reports whether kind is handled by the action log itself
// rather than recorded as an application action.
func IsToolKind(kind string) bool {
	return toolKinds[kind]
}

// Action is the record exchanged between the state tree and the action log.
// JSON shape: {"kind": "increment", "args": [1]}.
type Action struct {
	Kind string `json:"kind"`
	Args Array  `json:"args"`
}

// NewAction builds an Action from a kind and arguments.
func NewAction(kind string, args ...Value) Action {
	if args == nil {
		args = Array{}
	}
	return Action{Kind: kind, Args: Array(args)}
}

// Clone returns a copy of a whose arguments share no memory with a.
func (a Action) Clone() Action {
	args, _ := Clone(a.Args).(Array)
	if args == nil {
		args = Array{}
	}
	return Action{Kind: a.Kind, Args: args}
}

// Init returns an @@INIT action.
func Init() Action {
	return NewAction(KindInit)
}

// Commit returns a COMMIT action.
func Commit() Action {
	return NewAction(KindCommit)
}

// Perform wraps an already-applied action for the log.
func Perform(inner Action) Action {
	return NewAction(KindPerform, inner.toObject())
}

// Unwrap returns the action carried by a PERFORM_ACTION wrapper.
func Unwrap(a Action) (Action, error) {
	if a.Kind != KindPerform {
		return Action{}, fmt.Errorf("unwrap: kind %q is not %s", a.Kind, KindPerform)
	}
	if len(a.Args) != 1 {
		return Action{}, fmt.Errorf("unwrap: expected 1 argument, got %d", len(a.Args))
	}
	obj, ok := a.Args[0].(Object)
	if !ok {
		return Action{}, fmt.Errorf("unwrap: argument is %T, not an object", a.Args[0])
	}
	return actionFromObject(obj)
}

// IntArg returns Args[i] as an int64.
func (a Action) IntArg(i int) (int64, error) {
	if i < 0 || i >= len(a.Args) {
		return 0, fmt.Errorf("%s: missing argument %d", a.Kind, i)
	}
	n, ok := a.Args[i].(Int)
	if !ok {
		return 0, fmt.Errorf("%s: argument %d is %T, not an int", a.Kind, i, a.Args[i])
	}
	return int64(n), nil
}

// Validate checks that the action can be dispatched.
func (a Action) Validate() error {
	if a.Kind == "" {
		return fmt.Errorf("action kind must not be empty")
	}
	return nil
}

func (a Action) toObject() Object {
	args := a.Args
	if args == nil {
		args = Array{}
	}
	return Object{
		"kind": String(a.Kind),
		"args": args,
	}
}

func actionFromObject(obj Object) (Action, error) {
	kind, ok := obj["kind"].(String)
	if !ok || kind == "" {
		return Action{}, fmt.Errorf("action object missing string kind")
	}
	var args Array
	switch v := obj["args"].(type) {
	case nil, Null:
		args = Array{}
	case Array:
		args = v
	default:
		return Action{}, fmt.Errorf("action %q: args is %T, not an array", kind, v)
	}
	return Action{Kind: string(kind), Args: args}, nil
}

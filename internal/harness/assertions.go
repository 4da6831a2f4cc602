package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tandem/internal/actionlog"
	"github.com/roach88/tandem/internal/assembly"
	"github.com/roach88/tandem/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	History  []actionlog.Entry
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nHistory:\n")
	for i, entry := range e.History {
		fmt.Fprintf(&buf, "  [%d] #%d %s %s\n", i, entry.ID, entry.Action.Kind, canonicalString(entry.Action.Args))
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against the store and returns
// the failure messages.
func EvaluateAssertions(st *assembly.Store, assertions []Assertion) []string {
	var failures []string
	history := st.Log().Entries()

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertHistoryContains:
			err = assertHistoryContains(history, a)
		case AssertHistoryOrder:
			err = assertHistoryOrder(history, a)
		case AssertHistoryCount:
			err = assertHistoryCount(history, a)
		case AssertFinalState:
			err = assertFinalState(st.GetState(), a)
		case AssertCommitted:
			err = assertCommitted(st.Log().Committed(), a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			var ae *AssertionError
			if errors.As(err, &ae) {
				ae.History = history
			}
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertHistoryContains checks that an action with exactly these arguments
// was recorded.
func assertHistoryContains(history []actionlog.Entry, a Assertion) error {
	want, err := convertArgs(a.Args)
	if err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	for _, entry := range history {
		if entry.Action.Kind == a.Action && ir.Equal(entry.Action.Args, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertHistoryContains,
		Expected: fmt.Sprintf("%s with args %s", a.Action, canonicalString(want)),
		Actual:   "not found in history",
	}
}

// assertHistoryOrder checks that the actions were recorded in this relative
// order. Other actions may appear in between.
func assertHistoryOrder(history []actionlog.Entry, a Assertion) error {
	next := 0
	for _, entry := range history {
		if next < len(a.Actions) && entry.Action.Kind == a.Actions[next] {
			next++
		}
	}
	if next == len(a.Actions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertHistoryOrder,
		Expected: strings.Join(a.Actions, " -> "),
		Actual:   fmt.Sprintf("%s not found after %s", a.Actions[next], strings.Join(a.Actions[:next], " -> ")),
	}
}

// assertHistoryCount checks how many times an action was recorded.
func assertHistoryCount(history []actionlog.Entry, a Assertion) error {
	count := 0
	for _, entry := range history {
		if entry.Action.Kind == a.Action {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertHistoryCount,
		Expected: fmt.Sprintf("%s recorded %d times", a.Action, a.Count),
		Actual:   fmt.Sprintf("%d times", count),
	}
}

// assertFinalState compares the value at a dotted path of the final state.
func assertFinalState(state ir.Value, a Assertion) error {
	want, err := ir.FromGo(a.Expect)
	if err != nil {
		return fmt.Errorf("invalid expect: %w", err)
	}
	got, err := lookupPath(state, a.Path)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", pathLabel(a.Path), canonicalString(want)),
			Actual:   err.Error(),
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", pathLabel(a.Path), canonicalString(want)),
			Actual:   canonicalString(got),
		}
	}
	return nil
}

// assertCommitted compares the committed snapshot. A missing expect means
// nothing has been committed.
func assertCommitted(committed ir.Value, a Assertion) error {
	if a.Expect == nil {
		if committed == nil {
			return nil
		}
		return &AssertionError{
			Type:     AssertCommitted,
			Expected: "no committed snapshot",
			Actual:   canonicalString(committed),
		}
	}

	want, err := ir.FromGo(a.Expect)
	if err != nil {
		return fmt.Errorf("invalid expect: %w", err)
	}
	if committed == nil || !ir.Equal(want, committed) {
		actual := "no committed snapshot"
		if committed != nil {
			actual = canonicalString(committed)
		}
		return &AssertionError{
			Type:     AssertCommitted,
			Expected: canonicalString(want),
			Actual:   actual,
		}
	}
	return nil
}

// lookupPath walks a dotted path through nested objects.
func lookupPath(state ir.Value, path string) (ir.Value, error) {
	if path == "" {
		return state, nil
	}
	current := state
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("%s: not an object at %q", path, key)
		}
		v, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("%s: missing key %q", path, key)
		}
		current = v
	}
	return current, nil
}

func pathLabel(path string) string {
	if path == "" {
		return "state"
	}
	return path
}

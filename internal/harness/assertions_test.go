package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tandem/internal/actionlog"
	"github.com/roach88/tandem/internal/assembly"
	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/testutil"
)

func history(actions ...ir.Action) []actionlog.Entry {
	entries := []actionlog.Entry{{ID: 0, Action: ir.Init()}}
	for i, a := range actions {
		entries = append(entries, actionlog.Entry{ID: int64(i + 1), Action: a})
	}
	return entries
}

func TestAssertHistoryContains(t *testing.T) {
	h := history(ir.NewAction("increment", ir.Int(2)), ir.NewAction("rename", ir.String("x")))

	assert.NoError(t, assertHistoryContains(h, Assertion{Action: "increment", Args: []any{2}}))
	assert.NoError(t, assertHistoryContains(h, Assertion{Action: "rename", Args: []any{"x"}}))
	assert.NoError(t, assertHistoryContains(h, Assertion{Action: "@@INIT"}))

	err := assertHistoryContains(h, Assertion{Action: "increment", Args: []any{3}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertHistoryContains, ae.Type)
	assert.Equal(t, "increment with args [3]", ae.Expected)
}

func TestAssertHistoryOrder(t *testing.T) {
	h := history(
		ir.NewAction("increment"),
		ir.NewAction("rename"),
		ir.NewAction("decrement"),
	)

	assert.NoError(t, assertHistoryOrder(h, Assertion{Actions: []string{"increment", "decrement"}}))
	assert.NoError(t, assertHistoryOrder(h, Assertion{Actions: []string{"@@INIT", "rename"}}))

	err := assertHistoryOrder(h, Assertion{Actions: []string{"decrement", "increment"}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "increment not found after decrement", ae.Actual)
}

func TestAssertHistoryCount(t *testing.T) {
	h := history(ir.NewAction("increment"), ir.NewAction("increment"))

	assert.NoError(t, assertHistoryCount(h, Assertion{Action: "increment", Count: 2}))
	assert.NoError(t, assertHistoryCount(h, Assertion{Action: "decrement", Count: 0}))

	err := assertHistoryCount(h, Assertion{Action: "increment", Count: 1})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "2 times", ae.Actual)
}

func TestAssertFinalState(t *testing.T) {
	state := ir.Object{
		"count": ir.Int(3),
		"meta":  ir.Object{"owner": ir.String("ada")},
	}

	assert.NoError(t, assertFinalState(state, Assertion{Path: "count", Expect: 3}))
	assert.NoError(t, assertFinalState(state, Assertion{Path: "meta.owner", Expect: "ada"}))
	assert.NoError(t, assertFinalState(state, Assertion{
		Expect: map[string]any{"count": 3, "meta": map[string]any{"owner": "ada"}},
	}))

	err := assertFinalState(state, Assertion{Path: "count", Expect: 4})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "count = 4", ae.Expected)
	assert.Equal(t, "3", ae.Actual)

	err = assertFinalState(state, Assertion{Path: "meta.missing", Expect: 1})
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, `missing key "missing"`)

	err = assertFinalState(state, Assertion{Path: "count.deeper", Expect: 1})
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, "not an object")
}

func TestAssertCommitted(t *testing.T) {
	assert.NoError(t, assertCommitted(nil, Assertion{}))
	assert.NoError(t, assertCommitted(ir.Int(1), Assertion{Expect: 1}))

	var ae *AssertionError
	require.ErrorAs(t, assertCommitted(ir.Int(1), Assertion{}), &ae)
	assert.Equal(t, "1", ae.Actual)

	require.ErrorAs(t, assertCommitted(nil, Assertion{Expect: 1}), &ae)
	assert.Equal(t, "no committed snapshot", ae.Actual)
}

func TestEvaluateAssertions(t *testing.T) {
	st, err := assembly.Build(context.Background(), testutil.NewCounter(0))
	require.NoError(t, err)
	require.NoError(t, st.Dispatch(context.Background(), ir.NewAction("increment", ir.Int(2))))

	failures := EvaluateAssertions(st, []Assertion{
		{Type: AssertHistoryCount, Action: "increment", Count: 1},
		{Type: AssertFinalState, Path: "count", Expect: 2},
		{Type: AssertCommitted},
		{Type: AssertHistoryCount, Action: "increment", Count: 5},
	})

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "assertions[3]: Assertion failed: history_count")
	assert.Contains(t, failures[0], "[1] #1 increment [2]", "failure lists the history")
}

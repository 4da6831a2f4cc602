package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tandem/internal/assembly"
	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/persist"
)

func counterScenario(steps ...Step) *Scenario {
	return &Scenario{
		Name:    "counter",
		Catalog: "testdata/catalogs/counter.cue",
		Steps:   steps,
	}
}

func counter(n int64) ir.Object {
	return ir.Object{"count": ir.Int(n), "items": ir.Array{}}
}

func TestRun_DispatchAndTrigger(t *testing.T) {
	result, err := Run(counterScenario(
		Step{Dispatch: "increment", Args: []any{2}},
		Step{Trigger: "increment", Args: []any{3}},
		Step{Dispatch: "COMMIT"},
	))
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 3)

	assert.Equal(t, SourceDispatch, result.Trace[0].Source)
	assert.Equal(t, ir.Array{ir.Int(2)}, result.Trace[0].Args)
	assert.Equal(t, 2, result.Trace[0].Records)

	assert.Equal(t, SourceTrigger, result.Trace[1].Source)
	assert.True(t, ir.Equal(counter(5), result.Trace[1].State))
	assert.Equal(t, 3, result.Trace[1].Records, "the triggered mutation is recorded once")

	assert.Equal(t, 1, result.Trace[2].Records)
	assert.True(t, ir.Equal(counter(5), result.State))
}

func TestRun_TestdataScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			scenario, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestRun_StateMismatch(t *testing.T) {
	result, err := Run(counterScenario(
		Step{Dispatch: "increment", ExpectState: map[string]any{"count": 2, "items": []any{}}},
	))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 0: state mismatch")
	assert.Contains(t, result.Errors[0], `{"count":1,"items":[]}`)
}

func TestRun_ErrorExpectations(t *testing.T) {
	tests := []struct {
		name   string
		step   Step
		pass   bool
		errMsg string
	}{
		{
			name: "expected error",
			step: Step{Dispatch: "explode", ExpectError: "no such mutation"},
			pass: true,
		},
		{
			name:   "unexpected error",
			step:   Step{Dispatch: "explode"},
			errMsg: "unexpected error",
		},
		{
			name:   "missing error",
			step:   Step{Dispatch: "increment", ExpectError: "boom"},
			errMsg: "got none",
		},
		{
			name:   "different error",
			step:   Step{Dispatch: "explode", ExpectError: "boom"},
			errMsg: `expected error containing "boom"`,
		},
		{
			name: "trigger error",
			step: Step{Trigger: "explode", ExpectError: "no such mutation"},
			pass: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(counterScenario(tt.step))
			require.NoError(t, err)

			assert.Equal(t, tt.pass, result.Pass)
			if tt.errMsg != "" {
				require.Len(t, result.Errors, 1)
				assert.Contains(t, result.Errors[0], tt.errMsg)
			}
			require.Len(t, result.Trace, 1)
			assert.Equal(t, 1, result.Trace[0].Records)
		})
	}
}

func TestRun_TriggerMutationError(t *testing.T) {
	result, err := Run(counterScenario(
		Step{Trigger: "increment", Args: []any{"x"}, ExpectError: "not an int"},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, 1, result.Trace[0].Records)
}

func TestRun_InvalidArgs(t *testing.T) {
	_, err := Run(counterScenario(Step{Dispatch: "increment", Args: []any{1.5}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0: failed to convert args")
}

func TestRun_MissingCatalog(t *testing.T) {
	scenario := counterScenario(Step{Dispatch: "increment"})
	scenario.Catalog = "testdata/catalogs/missing.cue"

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}

func TestRun_MaxHistory(t *testing.T) {
	scenario := counterScenario(
		Step{Dispatch: "increment"},
		Step{Dispatch: "increment"},
		Step{Dispatch: "increment"},
	)
	scenario.MaxHistory = 2
	scenario.Assertions = []Assertion{
		{Type: AssertCommitted, Expect: map[string]any{"count": 2, "items": []any{}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, 2, result.Trace[2].Records)
}

func TestRun_PersistsSession(t *testing.T) {
	p, err := persist.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer p.Close()

	scenario := counterScenario(
		Step{Dispatch: "increment", Args: []any{4}},
		Step{Trigger: "push", Args: []any{"x"}},
	)
	scenario.Session = "harness-session"

	result, err := Run(scenario, assembly.WithPersistence(p))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, "harness-session", result.SessionID)

	ls, found, err := p.Load(context.Background(), "harness-session")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, ls.Entries, 3)

	// A second run resumes the saved history.
	resumed, err := Run(counterScenario(Step{Dispatch: "increment"}),
		assembly.WithPersistence(p), assembly.WithSession("harness-session"))
	require.NoError(t, err)
	assert.Equal(t, 4, resumed.Trace[0].Records)
	assert.True(t, ir.Equal(ir.Object{"count": ir.Int(5), "items": ir.Array{ir.String("x")}}, resumed.State))
}

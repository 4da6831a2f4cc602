package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/tandem/internal/assembly"
	"github.com/roach88/tandem/internal/catalog"
	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/statetree"
)

// Harness executes the steps of one scenario.
type Harness struct {
	store  *assembly.Store
	tree   *statetree.Tree
	logger *slog.Logger
}

// Run executes a scenario against a fresh tree built from its catalog.
//
// Options are applied after the scenario's own session and history
// settings, so callers can attach a persistence store or override the
// session. Logs are discarded unless a logger option is given.
func Run(scenario *Scenario, opts ...assembly.Option) (*Result, error) {
	ctx := context.Background()

	spec, err := catalog.LoadFile(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	tree, err := spec.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	all := []assembly.Option{
		assembly.WithLogger(logger),
		assembly.WithSession(scenario.Session),
		assembly.WithMaxHistory(scenario.MaxHistory),
	}
	all = append(all, opts...)

	st, err := assembly.Build(ctx, tree, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble store: %w", err)
	}

	h := &Harness{store: st, tree: tree, logger: logger}
	result := NewResult()
	result.SessionID = st.SessionID()

	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(st, scenario.Assertions) {
		result.AddError(msg)
	}
	result.State = st.GetState()
	return result, nil
}

// executeSteps runs every step in order. A failed expectation is recorded
// and execution continues; only malformed steps abort the run.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		args, err := convertArgs(step.Args)
		if err != nil {
			return fmt.Errorf("step %d: failed to convert args: %w", i, err)
		}

		ev := TraceEvent{Step: i, Args: args}
		var stepErr error
		if step.Dispatch != "" {
			ev.Source, ev.Kind = SourceDispatch, step.Dispatch
			stepErr = h.store.Dispatch(ctx, ir.NewAction(step.Dispatch, args...))
		} else {
			ev.Source, ev.Kind = SourceTrigger, step.Trigger
			stepErr = h.trigger(step.Trigger, args)
		}

		ev.State = h.store.GetState()
		ev.Records = len(h.store.Log().Entries())
		if stepErr != nil {
			ev.Error = stepErr.Error()
		}
		result.AddEvent(ev)

		h.logger.Info("step executed", "step", i, "source", ev.Source, "kind", ev.Kind, "error", stepErr)

		h.checkError(i, step, stepErr, result)
		if step.ExpectState != nil {
			if err := h.checkState(i, step.ExpectState, ev.State, result); err != nil {
				return err
			}
		}
	}
	return nil
}

// trigger runs a tree mutation. The bridge forwards it to the log from the
// tree's notification, so a forwarding failure only shows up on the bridge.
func (h *Harness) trigger(name string, args ir.Array) error {
	before := h.store.Bridge().LastError()
	if err := h.tree.Trigger(name, args...); err != nil {
		return err
	}
	if after := h.store.Bridge().LastError(); after != nil && after != before {
		return after
	}
	return nil
}

func (h *Harness) checkError(i int, step Step, err error, result *Result) {
	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, stepKind(step), err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got none", i, stepKind(step), step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got %q", i, stepKind(step), step.ExpectError, err.Error()))
	}
}

func (h *Harness) checkState(i int, expect any, actual ir.Value, result *Result) error {
	want, err := ir.FromGo(expect)
	if err != nil {
		return fmt.Errorf("step %d: invalid expect_state: %w", i, err)
	}
	if !ir.Equal(want, actual) {
		result.AddError(fmt.Sprintf("step %d: state mismatch\n  Expected: %s\n  Actual: %s",
			i, canonicalString(want), canonicalString(actual)))
	}
	return nil
}

func stepKind(step Step) string {
	if step.Dispatch != "" {
		return step.Dispatch
	}
	return step.Trigger
}

// convertArgs converts YAML-decoded arguments into values.
func convertArgs(args []any) (ir.Array, error) {
	out := make(ir.Array, 0, len(args))
	for i, a := range args {
		v, err := ir.FromGo(a)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func canonicalString(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

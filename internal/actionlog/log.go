package actionlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tandem/internal/ir"
)

var (
	// ErrUnknownEntry is returned when TOGGLE_ACTION names an id that is not
	// in the history.
	ErrUnknownEntry = errors.New("unknown log entry")

	// ErrIndexOutOfRange is returned when JUMP_TO_STATE names a state that
	// does not exist.
	ErrIndexOutOfRange = errors.New("state index out of range")

	// ErrInvalidLiftedState is returned by Restore for inconsistent input.
	ErrInvalidLiftedState = errors.New("invalid lifted state")
)

// Reducer computes the state after action from prior.
//
// For @@INIT, prior is the snapshot to restore and may be nil, meaning the
// reducer's own default. For application actions, prior is the previous
// computed state. Tool actions other than PERFORM_ACTION never reach it.
type Reducer func(prior ir.Value, a ir.Action) (ir.Value, error)

// Entry is one recorded action.
type Entry struct {
	ID     int64     `json:"id"`
	Action ir.Action `json:"action"`
}

// Computed is the state produced by one entry. Err is set when the reducer
// failed while recomputing; State then holds what the reducer returned.
type Computed struct {
	State ir.Value
	Err   error
}

// Log is a time-travel action log.
type Log struct {
	reducer    Reducer
	clock      *Clock
	committed  ir.Value
	entries    []Entry
	computed   []Computed
	skipped    map[int64]bool
	current    int
	maxHistory int
	onCommit   func(committed ir.Value)
	logger     *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithMaxHistory bounds the number of entries, @@INIT included. When a
// dispatch exceeds it the oldest action is committed. Values below 2 mean
// unbounded.
func WithMaxHistory(n int) Option {
	return func(l *Log) {
		l.maxHistory = n
	}
}

// WithAutoCommitHook sets fn to run with a copy of the committed snapshot
// every time the max-history bound folds actions into it.
func WithAutoCommitHook(fn func(committed ir.Value)) Option {
	return func(l *Log) {
		l.onCommit = fn
	}
}

// WithLogger sets the log's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// New creates a Log and reduces the initial @@INIT.
func New(reducer Reducer, opts ...Option) (*Log, error) {
	if reducer == nil {
		return nil, fmt.Errorf("actionlog: reducer is nil")
	}

	l := &Log{
		reducer: reducer,
		clock:   NewClock(),
		skipped: make(map[int64]bool),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.maxHistory < 2 {
		l.maxHistory = 0
	}

	state, err := l.reducer(nil, ir.Init())
	if err != nil {
		return nil, fmt.Errorf("actionlog: initial @@INIT: %w", err)
	}
	l.entries = []Entry{{ID: 0, Action: ir.Init()}}
	l.computed = []Computed{{State: state}}
	return l, nil
}

// Dispatch applies one action to the log.
func (l *Log) Dispatch(ctx context.Context, a ir.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}

	l.logger.Debug("log dispatch", "kind", a.Kind, "entries", len(l.entries), "current", l.current)

	switch a.Kind {
	case ir.KindPerform:
		inner, err := ir.Unwrap(a)
		if err != nil {
			return err
		}
		if ir.IsToolKind(inner.Kind) || inner.Kind == ir.KindInit {
			return fmt.Errorf("%s cannot wrap %s", ir.KindPerform, inner.Kind)
		}
		return l.record(a, inner)
	case ir.KindCommit:
		l.commit()
		return nil
	case ir.KindRollback:
		l.collapse()
		l.recompute()
		return nil
	case ir.KindReset:
		l.committed = nil
		l.collapse()
		l.recompute()
		return nil
	case ir.KindJumpToState:
		index, err := a.IntArg(0)
		if err != nil {
			return err
		}
		return l.jump(int(index))
	case ir.KindToggleAction:
		id, err := a.IntArg(0)
		if err != nil {
			return err
		}
		return l.toggle(id)
	case ir.KindSweep:
		l.sweep()
		return nil
	default:
		return l.record(a, a)
	}
}

// record reduces a and appends recorded to the history. For PERFORM_ACTION
// the wrapper is reduced and the inner action is what gets recorded.
func (l *Log) record(a, recorded ir.Action) error {
	state, err := l.reducer(l.priorFor(a, l.computed[l.current].State), a)
	if err != nil {
		return fmt.Errorf("reduce %s: %w", a.Kind, err)
	}
	if l.current < len(l.entries)-1 {
		l.truncate()
	}

	l.entries = append(l.entries, Entry{ID: l.clock.Next(), Action: recorded.Clone()})
	l.computed = append(l.computed, Computed{State: state})
	l.current = len(l.entries) - 1

	if l.maxHistory > 0 && len(l.entries) > l.maxHistory {
		l.autoCommit()
	}
	return nil
}

// priorFor returns the snapshot an action is reduced against. @@INIT
// restores the committed snapshot; everything else builds on last.
func (l *Log) priorFor(a ir.Action, last ir.Value) ir.Value {
	if a.Kind == ir.KindInit {
		return ir.Clone(l.committed)
	}
	return last
}

// truncate drops entries after the current index. Dispatching from a past
// state starts a new branch of history.
func (l *Log) truncate() {
	for _, e := range l.entries[l.current+1:] {
		delete(l.skipped, e.ID)
	}
	l.entries = l.entries[:l.current+1]
	l.computed = l.computed[:l.current+1]
	l.logger.Debug("history truncated", "entries", len(l.entries))
}

// commit makes the current state the committed snapshot.
func (l *Log) commit() {
	l.committed = ir.Clone(l.computed[l.current].State)
	l.collapse()
	l.computed[0] = Computed{State: ir.Clone(l.committed)}
}

// collapse resets the history to a lone @@INIT.
func (l *Log) collapse() {
	l.entries = []Entry{{ID: 0, Action: ir.Init()}}
	l.computed = l.computed[:1]
	l.skipped = make(map[int64]bool)
	l.current = 0
}

// autoCommit folds the oldest action into the committed snapshot.
func (l *Log) autoCommit() {
	for len(l.entries) > l.maxHistory {
		l.committed = ir.Clone(l.computed[1].State)
		delete(l.skipped, l.entries[1].ID)
		l.entries = append(l.entries[:1], l.entries[2:]...)
		l.computed = append(l.computed[:1], l.computed[2:]...)
		l.computed[0] = Computed{State: ir.Clone(l.committed)}
		if l.current > 0 {
			l.current--
		}
	}
	l.logger.Debug("history auto-committed", "entries", len(l.entries))
	if l.onCommit != nil {
		l.onCommit(ir.Clone(l.committed))
	}
}

// jump shows the computed state at index without changing the history.
func (l *Log) jump(index int) error {
	if index < 0 || index >= len(l.computed) {
		return fmt.Errorf("jump to %d of %d states: %w", index, len(l.computed), ErrIndexOutOfRange)
	}
	if _, err := l.reducer(ir.Clone(l.computed[index].State), ir.Init()); err != nil {
		return fmt.Errorf("jump to %d: %w", index, err)
	}
	l.current = index
	return nil
}

func (l *Log) toggle(id int64) error {
	if id == 0 || l.indexOf(id) < 0 {
		return fmt.Errorf("toggle %d: %w", id, ErrUnknownEntry)
	}
	if l.skipped[id] {
		delete(l.skipped, id)
	} else {
		l.skipped[id] = true
	}
	l.recompute()
	return nil
}

// sweep removes skipped entries from the history.
func (l *Log) sweep() {
	if len(l.skipped) == 0 {
		return
	}
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !l.skipped[e.ID] {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	l.skipped = make(map[int64]bool)
	if l.current >= len(l.entries) {
		l.current = len(l.entries) - 1
	}
	l.recompute()
}

// recompute rebuilds every computed state from the committed snapshot.
// A reducer error is stored on the failing state and recomputation goes on.
func (l *Log) recompute() {
	computed := make([]Computed, len(l.entries))
	var last ir.Value
	for i, e := range l.entries {
		if i > 0 && l.skipped[e.ID] {
			computed[i] = Computed{State: last}
			continue
		}
		prior := l.priorFor(e.Action, last)
		state, err := l.reducer(prior, e.Action)
		if err != nil {
			l.logger.Warn("recompute failed", "index", i, "kind", e.Action.Kind, "error", err)
		}
		computed[i] = Computed{State: state, Err: err}
		last = state
	}
	l.computed = computed

	if l.current < len(l.computed)-1 {
		// The reducer now reflects the last state; show the current one.
		if err := l.jump(l.current); err != nil {
			l.logger.Warn("restore current state failed", "index", l.current, "error", err)
		}
	}
}

func (l *Log) indexOf(id int64) int {
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Entries returns a copy of the history, @@INIT first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ComputedStates returns a copy of every computed state.
func (l *Log) ComputedStates() []Computed {
	out := make([]Computed, len(l.computed))
	copy(out, l.computed)
	return out
}

// States returns the computed states up to and including the current one,
// oldest first. The last element is the state on display.
func (l *Log) States() []ir.Value {
	out := make([]ir.Value, 0, l.current+1)
	for _, c := range l.computed[:l.current+1] {
		out = append(out, c.State)
	}
	return out
}

// CurrentIndex returns the index of the state on display.
func (l *Log) CurrentIndex() int {
	return l.current
}

// Committed returns a copy of the committed snapshot, or nil if nothing has
// been committed since the last RESET.
func (l *Log) Committed() ir.Value {
	if l.committed == nil {
		return nil
	}
	return ir.Clone(l.committed)
}

// State returns the state on display.
func (l *Log) State() ir.Value {
	return l.computed[l.current].State
}

// IsSkipped reports whether the entry with id is toggled off.
func (l *Log) IsSkipped(id int64) bool {
	return l.skipped[id]
}

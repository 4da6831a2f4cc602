package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/statetree"
)

// ErrNilAdapter is returned by New when no state tree is supplied.
var ErrNilAdapter = errors.New("bridge: state tree adapter is nil")

// DispatchFunc delivers an action to the action log.
type DispatchFunc func(ctx context.Context, a ir.Action) error

// Middleware wraps a DispatchFunc.
type Middleware func(next DispatchFunc) DispatchFunc

// Chain composes middlewares so that the first one is outermost.
func Chain(final DispatchFunc, mws ...Middleware) DispatchFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		final = mws[i](final)
	}
	return final
}

// Stats counts bridge traffic.
type Stats struct {
	Replayed   int // actions replayed into the tree
	Suppressed int // notifications swallowed by the Guard
	Forwarded  int // tree mutations forwarded to the log
}

// stage is one named branch of the reducer.
type stage struct {
	name string
	run  func(b *Bridge, prior ir.Value, a ir.Action) error
}

var (
	stageInit = stage{
		name: "init",
		run:  (*Bridge).restore,
	}
	stagePassthrough = stage{
		name: "passthrough",
		run:  func(*Bridge, ir.Value, ir.Action) error { return nil },
	}
	stageReplay = stage{
		name: "replay",
		run:  (*Bridge).replay,
	}
)

// selectStage picks the reducer branch for an action kind.
func selectStage(kind string) stage {
	switch {
	case kind == ir.KindInit:
		return stageInit
	case ir.IsToolKind(kind):
		return stagePassthrough
	default:
		return stageReplay
	}
}

// Bridge is the reducer installed in the action log. It replays log actions
// into the state tree and forwards tree mutations to the log.
//
// Bridge is not safe for concurrent use. Set-guard, replay and notification
// must run back to back on one goroutine.
type Bridge struct {
	adapter    statetree.Adapter
	guard      Guard
	controller *Controller
	dispatch   DispatchFunc
	logger     *slog.Logger
	stats      Stats
	lastErr    error
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// New creates a Bridge over adapter. The current tree snapshot becomes the
// committed baseline, and the bridge subscribes to the tree's notifications.
func New(adapter statetree.Adapter, opts ...Option) (*Bridge, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}

	b := &Bridge{
		adapter: adapter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.controller = NewController(adapter.Read(), b.logger)

	adapter.Subscribe(b.onMutation)
	return b, nil
}

// Controller returns the bridge's baseline controller.
func (b *Bridge) Controller() *Controller {
	return b.controller
}

// Guard returns the current suppression state.
func (b *Bridge) Guard() GuardState {
	return b.guard.State()
}

// Stats returns traffic counters.
func (b *Bridge) Stats() Stats {
	return b.stats
}

// LastError returns the last error raised while forwarding a mutation.
func (b *Bridge) LastError() error {
	return b.lastErr
}

// Bind sets the function accepted tree mutations are forwarded to.
func (b *Bridge) Bind(dispatch DispatchFunc) {
	b.dispatch = dispatch
}

// Reduce implements the action log's reducer contract.
//
// prior is the snapshot the log supplies. It is only consulted by @@INIT,
// where a non-nil prior is preferred over the committed baseline.
// The returned value is always the tree's current snapshot.
func (b *Bridge) Reduce(prior ir.Value, a ir.Action) (ir.Value, error) {
	st := selectStage(a.Kind)
	b.logger.Debug("reduce", "stage", st.name, "kind", a.Kind)

	if err := st.run(b, prior, a); err != nil {
		return b.adapter.Read(), fmt.Errorf("%s stage: %w", st.name, err)
	}
	return b.adapter.Read(), nil
}

// restore replaces the tree with the log-supplied snapshot or the baseline.
func (b *Bridge) restore(prior ir.Value, _ ir.Action) error {
	snapshot := prior
	if snapshot == nil {
		snapshot = b.controller.Baseline()
	}
	return b.adapter.Replace(snapshot)
}

// replay runs an application action against the tree with the Guard armed.
func (b *Bridge) replay(_ ir.Value, a ir.Action) error {
	b.guard.Arm()
	if err := b.adapter.Replay(a.Kind, a.Args); err != nil {
		// No notification fired; the Guard must not outlive this call.
		b.guard.Disarm()
		return err
	}
	b.stats.Replayed++
	return nil
}

// onMutation is the tree's wildcard notification handler.
func (b *Bridge) onMutation(name string, args ir.Array) {
	if b.guard.Consume() {
		b.stats.Suppressed++
		return
	}
	if name == statetree.ReservedUpdate {
		return
	}
	if b.dispatch == nil {
		b.logger.Warn("mutation not forwarded: bridge is not bound", "mutation", name)
		return
	}

	// The tree has already applied this mutation. PERFORM_ACTION lets the
	// log record it without the reducer replaying it a second time.
	action := ir.Perform(ir.Action{Kind: name, Args: args})
	if err := b.dispatch(context.Background(), action); err != nil {
		b.lastErr = err
		b.logger.Error("forward mutation failed", "mutation", name, "error", err)
		return
	}
	b.stats.Forwarded++
}

package statetree

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/tandem/internal/ir"
)

// Mutation computes the next state from the current one. It must not
// modify state in place; Tree hands it a private copy regardless.
type Mutation func(state ir.Value, args ir.Array) (ir.Value, error)

// Tree is an in-memory observable state tree.
//
// Mutations are registered by name. Trigger (application side) and Replay
// (bridge side) run a mutation, store the result and then synchronously call
// every subscriber with the mutation name and arguments.
//
// Tree is not safe for concurrent use. Like the bridge it serves, it must be
// driven from a single goroutine.
type Tree struct {
	state       ir.Value
	mutations   map[string]Mutation
	subscribers []MutationHandler
	logger      *slog.Logger
}

// Ensure Tree implements Adapter.
var _ Adapter = (*Tree)(nil)

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithLogger sets the logger used for mutation traffic.
func WithLogger(l *slog.Logger) TreeOption {
	return func(t *Tree) {
		t.logger = l
	}
}

// NewTree creates a tree holding a copy of initial.
func NewTree(initial ir.Value, opts ...TreeOption) *Tree {
	if initial == nil {
		initial = ir.Null{}
	}
	t := &Tree{
		state:     ir.Clone(initial),
		mutations: make(map[string]Mutation),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds a named mutation. Registering an existing name replaces it.
func (t *Tree) Register(name string, m Mutation) error {
	if name == "" {
		return fmt.Errorf("register: mutation name must not be empty")
	}
	if name == ReservedUpdate || ir.IsToolKind(name) || name == ir.KindInit {
		return fmt.Errorf("register %q: %w", name, ErrReservedName)
	}
	if m == nil {
		return fmt.Errorf("register %q: mutation must not be nil", name)
	}
	t.mutations[name] = m
	return nil
}

// Mutations returns the registered mutation names in sorted order.
func (t *Tree) Mutations() []string {
	names := make([]string, 0, len(t.mutations))
	for name := range t.mutations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Read returns a copy of the current snapshot.
func (t *Tree) Read() ir.Value {
	return ir.Clone(t.state)
}

// Replace overwrites the tree with a copy of snapshot.
func (t *Tree) Replace(snapshot ir.Value) error {
	if snapshot == nil {
		snapshot = ir.Null{}
	}
	t.state = ir.Clone(snapshot)
	return nil
}

// Replay runs the mutation called name. See Adapter.
func (t *Tree) Replay(name string, args ir.Array) error {
	m, ok := t.mutations[name]
	if !ok {
		return fmt.Errorf("replay %q: %w", name, ErrNoSuchMutation)
	}

	next, err := m(ir.Clone(t.state), ir.Clone(args).(ir.Array))
	if err != nil {
		return fmt.Errorf("mutation %q: %w", name, err)
	}
	if next == nil {
		next = ir.Null{}
	}
	t.state = next

	t.logger.Debug("mutation applied", "mutation", name, "args", len(args))

	for _, h := range t.subscribers {
		h(name, ir.Clone(args).(ir.Array))
	}
	return nil
}

// Trigger is the application-side entry point for a mutation.
func (t *Tree) Trigger(name string, args ...ir.Value) error {
	if args == nil {
		args = []ir.Value{}
	}
	return t.Replay(name, ir.Array(args))
}

// Subscribe registers h for every mutation notification.
// Subscribers are called in registration order.
func (t *Tree) Subscribe(h MutationHandler) {
	if h == nil {
		return
	}
	t.subscribers = append(t.subscribers, h)
}

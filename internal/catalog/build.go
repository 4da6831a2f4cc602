package catalog

import (
	"fmt"
	"strings"

	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/statetree"
)

// Build creates a tree holding the declared initial snapshot with every
// declared mutation registered.
func (s *Spec) Build(opts ...statetree.TreeOption) (*statetree.Tree, error) {
	tree := statetree.NewTree(s.Initial, opts...)
	for _, m := range s.Mutations {
		if err := tree.Register(m.Name, m.mutation()); err != nil {
			return nil, fmt.Errorf("build tree: %w", err)
		}
	}
	return tree, nil
}

// MutationNames returns the declared mutation names in declaration order.
func (s *Spec) MutationNames() []string {
	names := make([]string, len(s.Mutations))
	for i, m := range s.Mutations {
		names[i] = m.Name
	}
	return names
}

// mutation returns the statetree.Mutation implementing m. The tree hands
// each mutation a private copy of the state, so it is edited in place.
func (m MutationSpec) mutation() statetree.Mutation {
	return func(state ir.Value, args ir.Array) (ir.Value, error) {
		parent, err := m.parent(state)
		if err != nil {
			return nil, err
		}
		key := m.Path[len(m.Path)-1]

		switch m.Op {
		case OpSet:
			if len(args) == 0 {
				return nil, fmt.Errorf("%s: set requires a value", m.Name)
			}
			parent[key] = args[0]

		case OpAdd, OpSub:
			delta := m.Default
			if len(args) > 0 {
				n, ok := args[0].(ir.Int)
				if !ok {
					return nil, fmt.Errorf("%s: argument is %T, not an int", m.Name, args[0])
				}
				delta = int64(n)
			}
			if m.Op == OpSub {
				delta = -delta
			}
			current, ok := parent[key].(ir.Int)
			if !ok {
				return nil, fmt.Errorf("%s: %s is %T, not an int", m.Name, m.pathString(), parent[key])
			}
			parent[key] = current + ir.Int(delta)

		case OpAppend:
			var current ir.Array
			switch v := parent[key].(type) {
			case nil:
			case ir.Array:
				current = v
			default:
				return nil, fmt.Errorf("%s: %s is %T, not an array", m.Name, m.pathString(), v)
			}
			parent[key] = append(current, args...)

		case OpDelete:
			delete(parent, key)

		default:
			return nil, fmt.Errorf("%s: unknown op %q", m.Name, m.Op)
		}
		return state, nil
	}
}

// parent walks state to the object holding the last path key.
func (m MutationSpec) parent(state ir.Value) (ir.Object, error) {
	obj, ok := state.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("%s: state is %T, not an object", m.Name, state)
	}
	for i, key := range m.Path[:len(m.Path)-1] {
		next, ok := obj[key].(ir.Object)
		if !ok {
			return nil, fmt.Errorf("%s: %s is not an object", m.Name, strings.Join(m.Path[:i+1], "."))
		}
		obj = next
	}
	return obj, nil
}

func (m MutationSpec) pathString() string {
	return strings.Join(m.Path, ".")
}

package testutil

import (
	"fmt"

	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/statetree"
)

// NewCounter returns a tree holding {"count": start} with three mutations:
//   - increment(n): count += n (n defaults to 1)
//   - decrement(n): count -= n (n defaults to 1)
//   - set(n):       count = n
func NewCounter(start int64) *statetree.Tree {
	tree := statetree.NewTree(ir.Object{"count": ir.Int(start)})
	mustRegister(tree, "increment", addMutation(1))
	mustRegister(tree, "decrement", addMutation(-1))
	mustRegister(tree, "set", func(state ir.Value, args ir.Array) (ir.Value, error) {
		n, err := intArg(args, 0)
		if err != nil {
			return nil, err
		}
		obj := state.(ir.Object)
		obj["count"] = ir.Int(n)
		return obj, nil
	})
	return tree
}

// Count reads the counter value from a snapshot.
func Count(v ir.Value) int64 {
	obj, ok := v.(ir.Object)
	if !ok {
		return 0
	}
	n, _ := obj["count"].(ir.Int)
	return int64(n)
}

// CounterState builds the snapshot {"count": n}.
func CounterState(n int64) ir.Object {
	return ir.Object{"count": ir.Int(n)}
}

func addMutation(sign int64) statetree.Mutation {
	return func(state ir.Value, args ir.Array) (ir.Value, error) {
		by := int64(1)
		if len(args) > 0 {
			n, err := intArg(args, 0)
			if err != nil {
				return nil, err
			}
			by = n
		}
		obj, ok := state.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("counter state is %T, not an object", state)
		}
		current, _ := obj["count"].(ir.Int)
		obj["count"] = current + ir.Int(sign*by)
		return obj, nil
	}
}

func intArg(args ir.Array, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	n, ok := args[i].(ir.Int)
	if !ok {
		return 0, fmt.Errorf("argument %d is %T, not an int", i, args[i])
	}
	return int64(n), nil
}

func mustRegister(tree *statetree.Tree, name string, m statetree.Mutation) {
	if err := tree.Register(name, m); err != nil {
		panic(err)
	}
}

package testutil

import (
	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/statetree"
)

// RecordingAdapter wraps a statetree.Adapter and records every Replay and
// Replace call made through it, plus every notification it delivered.
type RecordingAdapter struct {
	inner         statetree.Adapter
	Replays       []ir.Action
	Replaces      []ir.Value
	Notifications []ir.Action
}

// Ensure RecordingAdapter implements statetree.Adapter.
var _ statetree.Adapter = (*RecordingAdapter)(nil)

// NewRecordingAdapter wraps inner.
func NewRecordingAdapter(inner statetree.Adapter) *RecordingAdapter {
	r := &RecordingAdapter{inner: inner}
	inner.Subscribe(func(name string, args ir.Array) {
		r.Notifications = append(r.Notifications, ir.Action{Kind: name, Args: args})
	})
	return r
}

// Read delegates to the wrapped adapter.
func (r *RecordingAdapter) Read() ir.Value {
	return r.inner.Read()
}

// Replace records and delegates.
func (r *RecordingAdapter) Replace(snapshot ir.Value) error {
	r.Replaces = append(r.Replaces, ir.Clone(snapshot))
	return r.inner.Replace(snapshot)
}

// Replay records and delegates.
func (r *RecordingAdapter) Replay(name string, args ir.Array) error {
	r.Replays = append(r.Replays, ir.Action{Kind: name, Args: ir.Clone(args).(ir.Array)})
	return r.inner.Replay(name, args)
}

// Subscribe delegates to the wrapped adapter.
func (r *RecordingAdapter) Subscribe(h statetree.MutationHandler) {
	r.inner.Subscribe(h)
}

// ReplayCount returns how many times name was replayed.
func (r *RecordingAdapter) ReplayCount(name string) int {
	n := 0
	for _, a := range r.Replays {
		if a.Kind == name {
			n++
		}
	}
	return n
}

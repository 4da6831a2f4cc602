package actionlog

import (
	"fmt"
	"slices"

	"github.com/roach88/tandem/internal/ir"
)

// LiftedState is the persistable part of a Log. Computed states are not
// included; Restore recomputes them through the reducer.
type LiftedState struct {
	Committed    ir.Value `json:"committed"`
	Entries      []Entry  `json:"entries"`
	Skipped      []int64  `json:"skipped"`
	CurrentIndex int      `json:"current_index"`
	NextID       int64    `json:"next_id"`
}

// Snapshot captures the log's lifted state.
func (l *Log) Snapshot() LiftedState {
	skipped := make([]int64, 0, len(l.skipped))
	for id := range l.skipped {
		skipped = append(skipped, id)
	}
	slices.Sort(skipped)

	entries := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		entries[i] = Entry{ID: e.ID, Action: e.Action.Clone()}
	}

	return LiftedState{
		Committed:    l.Committed(),
		Entries:      entries,
		Skipped:      skipped,
		CurrentIndex: l.current,
		NextID:       l.clock.Current(),
	}
}

// Restore replaces the log's history with ls and recomputes every state.
// On error the log is left unchanged.
func (l *Log) Restore(ls LiftedState) error {
	if err := ls.Validate(); err != nil {
		return err
	}

	next := ls.NextID
	if last := ls.Entries[len(ls.Entries)-1].ID; last > next {
		next = last
	}

	skipped := make(map[int64]bool, len(ls.Skipped))
	for _, id := range ls.Skipped {
		skipped[id] = true
	}

	entries := make([]Entry, len(ls.Entries))
	for i, e := range ls.Entries {
		entries[i] = Entry{ID: e.ID, Action: e.Action.Clone()}
	}

	if ls.Committed != nil {
		l.committed = ir.Clone(ls.Committed)
	} else {
		l.committed = nil
	}
	l.entries = entries
	l.skipped = skipped
	l.current = ls.CurrentIndex
	l.clock = NewClockAt(next)
	l.recompute()

	l.logger.Debug("log restored", "entries", len(l.entries), "current", l.current)
	return nil
}

// Validate checks the structural invariants of a lifted state.
func (ls LiftedState) Validate() error {
	if len(ls.Entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrInvalidLiftedState)
	}
	if first := ls.Entries[0]; first.ID != 0 || first.Action.Kind != ir.KindInit {
		return fmt.Errorf("%w: entry 0 must be %s with id 0", ErrInvalidLiftedState, ir.KindInit)
	}

	ids := make(map[int64]bool, len(ls.Entries))
	for i, e := range ls.Entries {
		if i > 0 && e.ID <= ls.Entries[i-1].ID {
			return fmt.Errorf("%w: entry ids must increase (index %d)", ErrInvalidLiftedState, i)
		}
		if i > 0 && ir.IsToolKind(e.Action.Kind) {
			return fmt.Errorf("%w: tool action %s recorded at index %d", ErrInvalidLiftedState, e.Action.Kind, i)
		}
		if err := e.Action.Validate(); err != nil {
			return fmt.Errorf("%w: index %d: %v", ErrInvalidLiftedState, i, err)
		}
		ids[e.ID] = true
	}
	for _, id := range ls.Skipped {
		if id == 0 || !ids[id] {
			return fmt.Errorf("%w: skipped id %d not in history", ErrInvalidLiftedState, id)
		}
	}
	if ls.CurrentIndex < 0 || ls.CurrentIndex >= len(ls.Entries) {
		return fmt.Errorf("%w: current index %d of %d entries", ErrInvalidLiftedState, ls.CurrentIndex, len(ls.Entries))
	}
	return nil
}

package statetree

import (
	"errors"

	"github.com/roach88/tandem/internal/ir"
)

// ReservedUpdate is the event name trees use for plain change notifications.
// It never names a replayable mutation.
const ReservedUpdate = "update"

var (
	// ErrNoSuchMutation is returned when replaying a name the tree does not know.
	ErrNoSuchMutation = errors.New("no such mutation")

	// ErrReservedName is returned when registering a reserved event name.
	ErrReservedName = errors.New("reserved mutation name")
)

// MutationHandler receives the wildcard notification fired after every
// mutation, including mutations caused by Replay.
type MutationHandler func(name string, args ir.Array)

// Adapter is the capability interface any state tree must satisfy to be
// bridged to an action log.
type Adapter interface {
	// Read returns the current snapshot. No side effects.
	Read() ir.Value

	// Replace overwrites the entire tree. It does not fire a mutation
	// notification.
	Replace(snapshot ir.Value) error

	// Replay invokes the mutation called name with args and notifies every
	// subscriber before returning.
	Replay(name string, args ir.Array) error

	// Subscribe registers h for every mutation notification.
	Subscribe(h MutationHandler)
}

package bridge

// GuardState is the state of a Guard.
type GuardState uint8

const (
	// Passthrough forwards the next notification to the log.
	Passthrough GuardState = iota

	// Suppressed swallows the next notification.
	Suppressed
)

// String returns the string representation of the state.
func (s GuardState) String() string {
	switch s {
	case Passthrough:
		return "passthrough"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Guard suppresses the single notification caused by a bridge replay.
//
// Arm is called by the reducer immediately before a replay. Consume is
// called first thing by the notification handler and is the only call that
// clears an armed Guard on the success path.
type Guard struct {
	state GuardState
}

// Arm suppresses the next notification.
func (g *Guard) Arm() {
	g.state = Suppressed
}

// Consume reports whether the current notification must be suppressed and
// returns the Guard to Passthrough.
func (g *Guard) Consume() bool {
	if g.state != Suppressed {
		return false
	}
	g.state = Passthrough
	return true
}

// Disarm clears an armed Guard whose replay failed without notifying.
func (g *Guard) Disarm() {
	g.state = Passthrough
}

// State returns the current state.
func (g *Guard) State() GuardState {
	return g.state
}

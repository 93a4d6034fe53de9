package deform

// State is the lifecycle state of a Deformer.
type State int

const (
	// StateUninitialized is the initial state, and the state a failed setup returns to.
	StateUninitialized State = iota
	// StateInitializing is held while Setup runs.
	StateInitializing
	// StateReady allows per-frame calls.
	StateReady
	// StateReleased is terminal.
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

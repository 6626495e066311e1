package stasis

// State represents the subsystem's operating state. Save and load
// operations are accepted only while the subsystem is idle.
type State int

const (
	// StateDisabled means no game is in progress. Save and load
	// operations fail with ErrDisabled until NewGame or LoadGame runs.
	StateDisabled State = iota

	// StateIdle means a game is in progress and the subsystem accepts
	// save and load operations.
	StateIdle

	// StateSaving is held for the duration of a save operation.
	// Operations arriving in this state fail with ErrBusy.
	StateSaving

	// StateLoading is held for the duration of a load operation.
	// Operations arriving in this state fail with ErrBusy.
	StateLoading
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "Disabled"
	case StateIdle:
		return "Idle"
	case StateSaving:
		return "Saving"
	case StateLoading:
		return "Loading"
	default:
		return "Unknown"
	}
}

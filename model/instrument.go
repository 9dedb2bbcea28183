package model

// InstrumentState is the persisted state of a sampling instrument.
type InstrumentState int

const (
	// StateIdle holds no record; the instrument may deploy.
	StateIdle InstrumentState = iota
	// StateDeployed holds a record (or is otherwise full).
	StateDeployed
	// StateInoperable cannot be rerun until reset externally.
	StateInoperable
)

func (s InstrumentState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDeployed:
		return "deployed"
	case StateInoperable:
		return "inoperable"
	default:
		return "unknown"
	}
}

// ParseInstrumentState is the inverse of String. Unknown values map to
// StateIdle with ok=false.
func ParseInstrumentState(s string) (InstrumentState, bool) {
	switch s {
	case "idle":
		return StateIdle, true
	case "deployed":
		return StateDeployed, true
	case "inoperable":
		return StateInoperable, true
	default:
		return StateIdle, false
	}
}

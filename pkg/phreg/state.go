package phreg

// State is the controller's global state.
type State int

const (
	// StateInit is the bring-up state: alarms cleared, transports opened.
	StateInit State = iota

	// StateRun is normal operation. Faulted reactors are forced safe
	// individually; healthy reactors run their control algorithm.
	StateRun

	// StateDegraded is declared but reachable by no transition. The name is
	// reserved for the system owner; no logic is attached to it.
	StateDegraded

	// StateFailsafe forces every reactor to safe output every iteration.
	// There is no runtime exit; recovery is an operator restart.
	StateFailsafe
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRun:
		return "RUN"
	case StateDegraded:
		return "DEGRADED"
	case StateFailsafe:
		return "FAILSAFE"
	default:
		return "UNKNOWN"
	}
}

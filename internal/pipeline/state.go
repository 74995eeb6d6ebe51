package pipeline

// State is the poller's position in the cycle.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateParsing
	StateClassifying
	StateCommitting
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateClassifying:
		return "classifying"
	case StateCommitting:
		return "committing"
	case StateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

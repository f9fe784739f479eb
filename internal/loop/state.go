package loop

// State is the lifecycle state of a Loop.
type State int

const (
	Unconfigured State = iota
	Configured
	Running
	Faulted
	Stopped
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Faulted:
		return "faulted"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// SkipReason explains why a cycle or channel produced no output.
type SkipReason int

const (
	SkipNone SkipReason = iota
	// SkipNoCommand: no command was ever received.
	SkipNoCommand
	// SkipStaleStatus: no status sample since the previous cycle.
	SkipStaleStatus
	// SkipColdStart: every channel is waiting for estimator history.
	SkipColdStart
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipNoCommand:
		return "no-command"
	case SkipStaleStatus:
		return "stale-status"
	case SkipColdStart:
		return "cold-start"
	}
	return "unknown"
}

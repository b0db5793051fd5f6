package sidecar

// EventKind identifies the variant of an OutputEvent.
type EventKind int

const (
	EventStdout EventKind = iota
	EventStderr
	EventTerminated
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventTerminated:
		return "terminated"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// OutputEvent is one item of a child's event stream. Line is set for
// EventStdout and EventStderr, Code and Signal for EventTerminated (nil
// when unknown), Err for EventError.
type OutputEvent struct {
	Kind   EventKind
	Line   []byte
	Code   *int
	Signal *int
	Err    error
}

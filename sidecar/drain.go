package sidecar

// Drain consumes events into sink until the child terminates or the
// stream closes. It is meant to run on its own goroutine for the lifetime
// of the child and never touches the supervisor slot.
func Drain(events <-chan OutputEvent, sink *Sink) {
	for ev := range events {
		switch ev.Kind {
		case EventStdout:
			sink.Stdout(ev.Line)
		case EventStderr:
			sink.Stderr(ev.Line)
		case EventTerminated:
			sink.Terminated(ev.Code)
			return
		}
	}
}

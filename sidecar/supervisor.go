package sidecar

import (
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// ExitReason says why the host is exiting. It only affects logging.
type ExitReason int

const (
	ExitRequested ExitReason = iota // Explicit quit
	ExitSignal                      // OS termination request
	ExitCrash                       // Host is going down after a failure
)

func (r ExitReason) String() string {
	switch r {
	case ExitRequested:
		return "requested"
	case ExitSignal:
		return "signal"
	case ExitCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// Supervisor owns the sidecar for the lifetime of the host. The host calls
// OnReady once at startup and OnExit on every exit path.
type Supervisor struct {
	name     string
	launcher *Launcher
	sink     *Sink
	logger   hclog.Logger

	slot    Slot
	started atomic.Bool
	drained chan struct{}
}

// NewSupervisor creates a supervisor for the bundled executable name.
func NewSupervisor(name string, launcher *Launcher, sink *Sink, logger hclog.Logger) *Supervisor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Supervisor{
		name:     name,
		launcher: launcher,
		sink:     sink,
		logger:   logger.Named("supervisor"),
		drained:  make(chan struct{}),
	}
}

// OnReady spawns the sidecar, records its handle and starts draining its
// output. A spawn error leaves the slot empty and must abort startup.
// Calling OnReady more than once panics.
func (s *Supervisor) OnReady() error {
	if !s.started.CompareAndSwap(false, true) {
		panic("sidecar: OnReady called more than once")
	}

	events, child, err := s.launcher.Spawn(s.name)
	if err != nil {
		s.logger.Error("failed to spawn sidecar", "name", s.name, "error", err)
		return err
	}

	s.slot.Record(child)

	go func() {
		defer close(s.drained)
		Drain(events, s.sink)
		s.logger.Debug("output drain finished", "pid", child.Pid())
		s.reportExit(child)
	}()

	return nil
}

// OnExit force-kills the sidecar if it is still recorded. It reports
// whether a handle was taken; every call after the first is a no-op. Kill
// errors are logged and never returned, so the host can always finish its
// own exit sequence.
func (s *Supervisor) OnExit(reason ExitReason) bool {
	child := s.slot.Take()
	if child == nil {
		s.logger.Debug("no sidecar to stop", "reason", reason)
		return false
	}

	s.logger.Info("stopping sidecar", "pid", child.Pid(), "reason", reason)
	if err := child.Kill(); err != nil {
		s.logger.Warn("failed to kill sidecar", "pid", child.Pid(), "error", err)
		return true
	}

	s.sink.Stopped()
	return true
}

// reportExit logs the recent output of a child that died on its own with
// a failure status. A child killed by OnExit is no longer in the slot and
// is not reported.
func (s *Supervisor) reportExit(child *Child) {
	if !s.slot.Occupied() {
		return
	}
	code, ok := child.ExitCode()
	if ok && code == 0 {
		return
	}

	status := "unknown"
	if ok {
		status = fmt.Sprintf("%d", code)
	}
	s.logger.Warn("sidecar terminated unexpectedly", "pid", child.Pid(), "code", status,
		"output", string(s.sink.Tail()))
}

// ShutdownOnPanic is deferred by the host. If the host is panicking it
// kills the sidecar with ExitCrash and re-panics.
func (s *Supervisor) ShutdownOnPanic() {
	if r := recover(); r != nil {
		s.OnExit(ExitCrash)
		panic(r)
	}
}

// Occupied reports whether a sidecar handle is currently recorded.
func (s *Supervisor) Occupied() bool {
	return s.slot.Occupied()
}

// Drained is closed once the drain task has finished. It never closes if
// OnReady failed or was not called.
func (s *Supervisor) Drained() <-chan struct{} {
	return s.drained
}

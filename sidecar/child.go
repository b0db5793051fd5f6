package sidecar

import (
	"os/exec"
)

// Child is the handle of a spawned sidecar process.
type Child struct {
	Path string

	cmd      *exec.Cmd
	pid      int
	platform platformChild

	// exited is closed once the process has been reaped; waitErr and
	// cmd.ProcessState are written before that and never after.
	exited  chan struct{}
	waitErr error
}

// Pid returns the process id of the child.
func (c *Child) Pid() int {
	return c.pid
}

// Exited is closed once the child has terminated and been reaped.
func (c *Child) Exited() <-chan struct{} {
	return c.exited
}

// ExitCode returns the exit code once the child has exited normally. The
// second result is false while it is running or when it was terminated by
// a signal.
func (c *Child) ExitCode() (int, bool) {
	select {
	case <-c.exited:
	default:
		return 0, false
	}

	state := c.cmd.ProcessState
	if state == nil || !state.Exited() {
		return 0, false
	}
	return state.ExitCode(), true
}

// Kill force-kills the child and everything it started, then waits for
// the child to be reaped. There is no grace period. Killing a child that
// has already exited returns an error wrapping os.ErrProcessDone.
func (c *Child) Kill() error {
	if err := killTree(c); err != nil {
		return err
	}
	<-c.exited
	return nil
}

func (c *Child) wait() {
	c.waitErr = c.cmd.Wait()
	close(c.exited)
}

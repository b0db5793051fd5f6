//go:build !windows

package sidecar

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const exeSuffix = ""

type platformChild struct{}

func startCmd(c *Child) error {
	return c.cmd.Start()
}

// killTree sends SIGKILL to the child's process group, which takes any
// grandchildren down with it.
func killTree(c *Child) error {
	pid := c.pid
	if ownsGroup(c, unix.Getpgid) {
		err := unix.Kill(-pid, unix.SIGKILL)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("failed to kill process group %d: %w", pid, err)
		}
	}

	// The group is gone or its id was recycled. Fall back to the leader so
	// that an already reaped child reports os.ErrProcessDone.
	if err := c.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}

// ownsGroup reports whether -pid still names the child's process group.
// While the child runs it leads the group. Once it has been reaped a pid
// is not reused as long as a group with that id exists, so a live process
// holding the pid means the group is gone and the number was recycled.
func ownsGroup(c *Child, getpgid func(int) (int, error)) bool {
	select {
	case <-c.exited:
	default:
		return true
	}
	_, err := getpgid(c.pid)
	return errors.Is(err, unix.ESRCH)
}

func exitSignal(state *os.ProcessState) *int {
	if state == nil {
		return nil
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return nil
	}
	sig := int(ws.Signal())
	return &sig
}

func isExecutable(info os.FileInfo) bool {
	return info.Mode().Perm()&0111 != 0
}

//go:build windows

package sidecar

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/hashicorp/go-multierror"
	winjob "github.com/kolesnikovae/go-winjob"
)

const exeSuffix = ".exe"

type platformChild struct {
	mu  sync.Mutex
	job *winjob.JobObject
}

// configureCmd hides the console window of the child.
func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}

// startCmd starts the child inside a job object that kills every process
// in it when its last handle closes, including when the host dies.
func startCmd(c *Child) error {
	job, err := winjob.Create("sidecar-"+strconv.Itoa(os.Getpid()),
		winjob.WithKillOnJobClose(),
		winjob.WithBreakawayOK(),
	)
	if err != nil {
		return fmt.Errorf("create job object: %w", err)
	}

	if err := winjob.StartInJobObject(c.cmd, job); err != nil {
		_ = job.Close()
		return fmt.Errorf("start in job: %w", err)
	}

	c.platform.job = job
	return nil
}

// killTree terminates the child and closes its job object, which takes
// the rest of the tree down.
func killTree(c *Child) error {
	var mErr *multierror.Error

	if err := c.cmd.Process.Kill(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("failed to kill process %d: %w", c.pid, err))
	}

	c.platform.mu.Lock()
	job := c.platform.job
	c.platform.job = nil
	c.platform.mu.Unlock()

	if job != nil {
		if err := job.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("close job object: %w", err))
		}
	}

	return mErr.ErrorOrNil()
}

func exitSignal(*os.ProcessState) *int {
	return nil
}

func isExecutable(os.FileInfo) bool {
	return true
}

//go:build !windows && !linux

package sidecar

import (
	"os/exec"
	"syscall"
)

// configureCmd starts the child in its own process group.
func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

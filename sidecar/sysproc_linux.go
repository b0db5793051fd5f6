package sidecar

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureCmd starts the child in its own process group and has the
// kernel kill it if the host dies without running its exit hook.
func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
}

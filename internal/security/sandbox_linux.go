//go:build linux

package security

import (
	"os/exec"
	"syscall"
)

// applySandbox puts the script in a new process group so that a timeout
// also kills the processes it spawned.
func applySandbox(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

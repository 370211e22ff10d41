//go:build !windows

package cmdexec

import (
	"os/exec"
	"syscall"
)

// applySysProcAttr gives a detached child its own process group. The raw
// tail is a Windows-only concept and ignored here.
func applySysProcAttr(cmd *exec.Cmd, detached bool, _ string) {
	if detached {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
}

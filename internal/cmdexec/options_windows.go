//go:build windows

package cmdexec

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/windows"
)

// applySysProcAttr sets detachment creation flags and, when rawTail is
// non-empty, hands the command line to CreateProcess unparsed so user
// quoting inside the tail survives.
func applySysProcAttr(cmd *exec.Cmd, detached bool, rawTail string) {
	attr := &syscall.SysProcAttr{}
	if detached {
		attr.CreationFlags = windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP
	}
	if rawTail != "" {
		line := syscall.EscapeArg(cmd.Path)
		for _, a := range cmd.Args[1:] {
			line += " " + syscall.EscapeArg(a)
		}
		attr.CmdLine = line + " " + rawTail
	}
	cmd.SysProcAttr = attr
}

// powershellExe probes for powershell.exe on PATH and falls back to the
// system install under %WINDIR%.
func powershellExe() string {
	if probeExe("powershell.exe") {
		return "powershell.exe"
	}
	return filepath.Join(os.Getenv("WINDIR"), "System32", "WindowsPowerShell", "v1.0", "powershell.exe")
}

func cmdExe() string {
	if probeExe("cmd.exe") {
		return "cmd.exe"
	}
	return filepath.Join(os.Getenv("WINDIR"), "System32", "cmd.exe")
}

func probeExe(name string) bool {
	return exec.Command(name).Run() == nil
}

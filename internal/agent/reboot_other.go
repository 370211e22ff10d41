//go:build !windows

package agent

import (
	"log"
	"os"
	"time"

	"github.com/ironhive/agent/internal/cmdexec"
)

func RebootNow() error {
	_, err := cmdexec.CmdExe{
		Exe:     "reboot",
		Timeout: 15 * time.Second,
	}.Run()
	return err
}

// RebootRequired checks the Debian marker files first, then falls back
// to the RHEL needs-restarting probe.
func RebootRequired() bool {
	for _, p := range []string{"/var/run/reboot-required", "/run/reboot-required"} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	for _, bin := range []string{"/usr/bin/needs-restarting", "/bin/needs-restarting"} {
		if _, err := os.Stat(bin); err != nil {
			continue
		}
		out, err := cmdexec.CmdExe{
			Exe:     bin,
			Args:    []string{"-r"},
			Timeout: 15 * time.Second,
		}.Run()
		if err != nil {
			log.Printf("[agent] needs-restarting: %v", err)
			continue
		}
		if out.ExitCode == 0 {
			return true
		}
	}
	return false
}

// PatchMgmt has no effect outside Windows.
func PatchMgmt(bool) error {
	return nil
}

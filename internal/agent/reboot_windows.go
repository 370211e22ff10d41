//go:build windows

package agent

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows/registry"

	"github.com/ironhive/agent/internal/cmdexec"
)

// RebootNow schedules a forced restart in five seconds.
func RebootNow() error {
	_, err := cmdexec.CmdExe{
		Exe:     "shutdown.exe",
		Args:    []string{"/r", "/t", "5", "/f"},
		Timeout: 15 * time.Second,
	}.Run()
	return err
}

// RebootRequired reports whether Windows Update left a pending reboot.
// The marker key exists only while a reboot is outstanding.
func RebootRequired() bool {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE,
		`SOFTWARE\Microsoft\Windows\CurrentVersion\WindowsUpdate\Auto Update\RebootRequired`,
		registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	k.Close()
	return true
}

// PatchMgmt toggles automatic updates through the AU policy key.
func PatchMgmt(enable bool) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE,
		`SOFTWARE\Policies\Microsoft\Windows\WindowsUpdate\AU`,
		registry.ALL_ACCESS)
	if err != nil {
		return fmt.Errorf("open AU policy key: %w", err)
	}
	defer k.Close()

	var v uint32
	if enable {
		v = 1
	}
	if err := k.SetDWordValue("AUOptions", v); err != nil {
		return fmt.Errorf("set AUOptions: %w", err)
	}
	return nil
}

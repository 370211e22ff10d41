//go:build windows

package installer

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/ironhive/agent/internal/service"
)

func isRoot() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// installService registers the agent to start automatically and restart
// 12 seconds after a crash, with the failure count resetting after 10
// seconds of clean running.
func installService(exePath string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect service manager: %w", err)
	}
	defer m.Disconnect()

	cfg := mgr.Config{
		ServiceType:  windows.SERVICE_WIN32_OWN_PROCESS | windows.SERVICE_INTERACTIVE_PROCESS,
		StartType:    mgr.StartAutomatic,
		ErrorControl: mgr.ErrorSevere,
		DisplayName:  "Ironhive Agent Service",
	}
	s, err := m.CreateService(service.Name, exePath, cfg, "rpc")
	if err != nil {
		return fmt.Errorf("create service %s: %w", service.Name, err)
	}
	defer s.Close()

	actions := []mgr.RecoveryAction{
		{Type: mgr.ServiceRestart, Delay: 12 * time.Second},
	}
	if err := s.SetRecoveryActions(actions, 10); err != nil {
		return fmt.Errorf("set recovery actions: %w", err)
	}
	return nil
}

func uninstallService() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(service.Name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", service.Name, err)
	}
	defer s.Close()

	if err := s.Delete(); err != nil {
		return fmt.Errorf("delete service %s: %w", service.Name, err)
	}
	return nil
}

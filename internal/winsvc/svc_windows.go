//go:build windows

// Package winsvc enumerates and controls Windows services and reads the
// installed-software registry views.
package winsvc

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/ironhive/agent/internal/msg"
)

const stopPollInterval = 500 * time.Millisecond
const stopTimeout = 30 * time.Second

// List returns every WIN32 service with its status and config. Services
// that fail to open or query are logged and skipped.
func List() ([]msg.WindowsService, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect service manager: %w", err)
	}
	defer m.Disconnect()

	names, err := m.ListServices()
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	services := make([]msg.WindowsService, 0, len(names))
	for _, name := range names {
		rec, err := readService(m, name)
		if err != nil {
			log.Printf("[winsvc] read %s: %v", name, err)
			continue
		}
		services = append(services, rec)
	}
	return services, nil
}

// Detail returns the record for one service.
func Detail(name string) (msg.WindowsService, error) {
	m, err := mgr.Connect()
	if err != nil {
		return msg.WindowsService{}, fmt.Errorf("connect service manager: %w", err)
	}
	defer m.Disconnect()

	return readService(m, name)
}

// Control starts or stops a service. Stop waits for the stopped state,
// polling every half second for up to thirty seconds.
func Control(name, action string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	switch action {
	case "stop":
		status, err := s.Control(svc.Stop)
		if err != nil {
			return fmt.Errorf("stop %s: %w", name, err)
		}
		deadline := time.Now().Add(stopTimeout)
		for status.State != svc.Stopped {
			if time.Now().After(deadline) {
				return fmt.Errorf("timed out waiting for service %s to stop", name)
			}
			time.Sleep(stopPollInterval)
			status, err = s.Query()
			if err != nil {
				return fmt.Errorf("query %s: %w", name, err)
			}
		}
		return nil
	case "start":
		if err := s.Start(); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown service action provided: %s", action)
	}
}

// Edit rewrites the start type. "autodelay" is automatic start with the
// delayed flag set; "auto" clears it.
func Edit(name, startType string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	cfg, err := s.Config()
	if err != nil {
		return fmt.Errorf("query config %s: %w", name, err)
	}

	switch startType {
	case "auto":
		cfg.StartType = mgr.StartAutomatic
		cfg.DelayedAutoStart = false
	case "autodelay":
		cfg.StartType = mgr.StartAutomatic
		cfg.DelayedAutoStart = true
	case "manual":
		cfg.StartType = mgr.StartManual
	case "disabled":
		cfg.StartType = mgr.StartDisabled
	default:
		return fmt.Errorf("unknown startup type provided: %s", startType)
	}

	if err := s.UpdateConfig(cfg); err != nil {
		return fmt.Errorf("update config %s: %w", name, err)
	}
	return nil
}

func readService(m *mgr.Mgr, name string) (msg.WindowsService, error) {
	s, err := m.OpenService(name)
	if err != nil {
		return msg.WindowsService{}, fmt.Errorf("open: %w", err)
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return msg.WindowsService{}, fmt.Errorf("query status: %w", err)
	}
	cfg, err := s.Config()
	if err != nil {
		return msg.WindowsService{}, fmt.Errorf("query config: %w", err)
	}

	return msg.WindowsService{
		Name:             name,
		Status:           statusText(uint32(status.State)),
		DisplayName:      cfg.DisplayName,
		BinPath:          cfg.BinaryPathName,
		Description:      cfg.Description,
		Username:         cfg.ServiceStartName,
		PID:              status.ProcessId,
		StartType:        startTypeText(cfg.StartType),
		DelayedAutoStart: cfg.DelayedAutoStart,
	}, nil
}

func statusText(state uint32) string {
	switch state {
	case 1:
		return "stopped"
	case 2:
		return "start_pending"
	case 3:
		return "stop_pending"
	case 4:
		return "running"
	case 5:
		return "continue_pending"
	case 6:
		return "pause_pending"
	case 7:
		return "paused"
	default:
		return "unknown"
	}
}

func startTypeText(startType uint32) string {
	switch startType {
	case windows.SERVICE_BOOT_START:
		return "Boot"
	case windows.SERVICE_SYSTEM_START:
		return "System"
	case windows.SERVICE_AUTO_START:
		return "Automatic"
	case windows.SERVICE_DEMAND_START:
		return "Manual"
	case windows.SERVICE_DISABLED:
		return "Disabled"
	default:
		return "unknown"
	}
}

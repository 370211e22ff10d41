// Package installer sets up and tears down the on-host footprint: the
// config directory with its default.json, and on Windows the registered
// service.
package installer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ironhive/agent/internal/config"
)

// ErrNoServers rejects an install without a broker to connect to.
var ErrNoServers = errors.New("at least one NATS server address must be set")

// ErrNotRoot rejects an install attempt without elevation.
var ErrNotRoot = errors.New("must run as root")

// Installer captures the install-time choices.
type Installer struct {
	NATSServers     []string
	OverwriteConfig bool
}

// Install writes the initial configuration and registers the service.
// An existing default.json is kept unless OverwriteConfig wipes the
// directory first.
func (i Installer) Install() error {
	if len(i.NATSServers) == 0 {
		return ErrNoServers
	}
	if !isRoot() {
		return ErrNotRoot
	}

	if i.OverwriteConfig {
		if err := removeConfigDir(); err != nil {
			return err
		}
	}

	agentID := config.GenerateAgentID()
	log.Printf("[installer] agent id %s", agentID)

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	cfg := config.Config{
		Addrs:   i.NATSServers,
		AgentID: agentID,
		ExePath: exePath,
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	path, err := config.DefaultFile()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	return installService(exePath)
}

// Uninstall removes the configuration and deregisters the service.
func Uninstall() error {
	if !isRoot() {
		return ErrNotRoot
	}
	if err := removeConfigDir(); err != nil {
		return err
	}
	return uninstallService()
}

func removeConfigDir() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove config dir: %w", err)
	}
	return nil
}

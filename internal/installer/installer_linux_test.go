//go:build linux

package installer

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/ironhive/agent/internal/config"
)

func TestInstallRequiresServers(t *testing.T) {
	if err := (Installer{}).Install(); !errors.Is(err, ErrNoServers) {
		t.Fatalf("err = %v, want ErrNoServers", err)
	}
}

func TestInstallWritesDefaultConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	inst := Installer{NATSServers: []string{"nats://127.0.0.1:4222"}}
	if err := inst.Install(); err != nil {
		t.Fatalf("install: %v", err)
	}

	path, err := config.DefaultFile()
	if err != nil {
		t.Fatalf("default file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if len(cfg.Addrs) != 1 || cfg.Addrs[0] != "nats://127.0.0.1:4222" {
		t.Errorf("addrs = %v", cfg.Addrs)
	}
	if len(cfg.AgentID) != 40 {
		t.Errorf("agent_id = %q", cfg.AgentID)
	}
	if cfg.ExePath == "" {
		t.Error("exe_path not recorded")
	}
}

func TestInstallKeepsExistingConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	inst := Installer{NATSServers: []string{"nats://127.0.0.1:4222"}}
	if err := inst.Install(); err != nil {
		t.Fatalf("first install: %v", err)
	}
	path, _ := config.DefaultFile()
	first, _ := os.ReadFile(path)

	if err := inst.Install(); err != nil {
		t.Fatalf("second install: %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Error("reinstall rewrote the config")
	}

	inst.OverwriteConfig = true
	if err := inst.Install(); err != nil {
		t.Fatalf("overwrite install: %v", err)
	}
	third, _ := os.ReadFile(path)
	if string(first) == string(third) {
		t.Error("overwrite install kept the old config")
	}
}

func TestUninstallRemovesConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	inst := Installer{NATSServers: []string{"nats://127.0.0.1:4222"}}
	if err := inst.Install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := Uninstall(); err != nil {
		t.Fatalf("uninstall: %v", err)
	}

	dir, _ := config.Dir()
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("config dir still present: %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.json"),
		`{"addrs":["nats://127.0.0.1:4222"],"agent_id":"from-default","client_capacity":128}`)
	writeFile(t, filepath.Join(dir, "development.json"),
		`{"agent_id":"from-overlay"}`)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AgentID != "from-overlay" {
		t.Errorf("agent_id = %q, want overlay value", cfg.AgentID)
	}
	if len(cfg.Addrs) != 1 || cfg.Addrs[0] != "nats://127.0.0.1:4222" {
		t.Errorf("addrs = %v", cfg.Addrs)
	}
	if cfg.ClientCapacity != 128 {
		t.Errorf("client_capacity = %d", cfg.ClientCapacity)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.json"), `{"agent_id":"from-file"}`)
	t.Setenv("IRONHIVE_AGENT_ID", "from-env")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AgentID != "from-env" {
		t.Errorf("agent_id = %q, want env value", cfg.AgentID)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("load with no files: %v", err)
	}
	if cfg.AgentID != "" {
		t.Errorf("agent_id = %q", cfg.AgentID)
	}
}

func TestGenerateAgentID(t *testing.T) {
	id := GenerateAgentID()
	if len(id) != 40 {
		t.Fatalf("len = %d", len(id))
	}
	for _, r := range id {
		if !strings.ContainsRune(agentIDLetters, r) {
			t.Errorf("unexpected rune %q", r)
		}
	}
	if id == GenerateAgentID() {
		t.Error("two generated ids collided")
	}
}

func TestNatsOptions(t *testing.T) {
	cfg := &Config{AgentID: "abc", Pass: "secret"}
	opts, err := cfg.NatsOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if len(opts) == 0 {
		t.Fatal("no options produced")
	}
}

func TestServerURL(t *testing.T) {
	cfg := &Config{Addrs: []string{"nats://a:4222", "nats://b:4222"}}
	if got := cfg.ServerURL(); got != "nats://a:4222,nats://b:4222" {
		t.Errorf("url = %q", got)
	}
}

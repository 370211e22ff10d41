package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ironhive/agent/internal/installer"
)

func TestEnvCommandListsOverrides(t *testing.T) {
	t.Setenv("IRONHIVE_AGENT_ID", "abc")
	t.Setenv("IRONHIVE_CONNECTION_TIMEOUT", "5s")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"env"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("env: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "agent_id = abc") {
		t.Errorf("missing agent_id line in %q", got)
	}
	if !strings.Contains(got, "connection_timeout = 5s") {
		t.Errorf("missing connection_timeout line in %q", got)
	}
}

func TestInstallRejectsEmptyServerList(t *testing.T) {
	cmd := rootCmd()
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"install"})
	if err := cmd.Execute(); !errors.Is(err, installer.ErrNoServers) {
		t.Fatalf("err = %v, want ErrNoServers", err)
	}
}

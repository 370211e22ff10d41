//go:build windows

// Package choco bootstraps chocolatey and installs packages with it.
package choco

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ironhive/agent/internal/cmdexec"
	"github.com/ironhive/agent/internal/msg"
)

const installScriptURL = "https://chocolatey.org/install.ps1"

// Install fetches the official bootstrap script and runs it under
// PowerShell. The script does a full download-and-extract, so it gets a
// generous timeout.
func Install() error {
	resp, err := http.Get(installScriptURL)
	if err != nil {
		return fmt.Errorf("fetch install script: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch install script: status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read install script: %w", err)
	}

	out, err := cmdexec.CmdScript{
		Code:    string(body),
		Mode:    msg.ScriptMode{Kind: msg.ScriptPowerShell},
		Timeout: 999 * time.Second,
	}.Run()
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		return fmt.Errorf("install choco failed: %s", out.Stderr)
	}
	return nil
}

// InstallPackage installs one package through choco.exe.
func InstallPackage(name string) (cmdexec.Output, error) {
	choco := filepath.Join(os.Getenv("PROGRAMDATA"), "chocolatey", "bin", "choco.exe")
	return cmdexec.CmdExe{
		Exe: choco,
		Args: []string{
			"install", name,
			"--yes", "--force", "--force-dependencies", "--no-progress",
		},
		Timeout: 1200 * time.Second,
	}.Run()
}

//go:build windows

package winsvc

import (
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/windows/registry"

	"github.com/ironhive/agent/internal/msg"
)

const uninstallKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`
const uninstallKeyWow = `SOFTWARE\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall`

// InstalledSoftware reads the Uninstall registry views. 64-bit hosts
// carry a second view for 32-bit software.
func InstalledSoftware() ([]msg.WinSoftware, error) {
	software, err := softwareUnder(uninstallKey)
	if err != nil {
		return nil, err
	}
	if runtime.GOARCH != "386" {
		wow, err := softwareUnder(uninstallKeyWow)
		if err != nil {
			return nil, err
		}
		software = append(software, wow...)
	}
	return software, nil
}

func softwareUnder(basekey string) ([]msg.WinSoftware, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, basekey,
		registry.QUERY_VALUE|registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", basekey, err)
	}
	defer k.Close()

	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", basekey, err)
	}

	var list []msg.WinSoftware
	for _, name := range names {
		sk, err := registry.OpenKey(registry.LOCAL_MACHINE, basekey+`\`+name, registry.QUERY_VALUE)
		if err != nil {
			log.Printf("[winsvc] open %s\\%s: %v", basekey, name, err)
			continue
		}

		displayName, _, err := sk.GetStringValue("DisplayName")
		if err != nil {
			sk.Close()
			continue
		}

		sw := msg.WinSoftware{Name: displayName}
		if v, _, err := sk.GetStringValue("DisplayVersion"); err == nil {
			sw.Version = v
		}
		if v, _, err := sk.GetStringValue("Publisher"); err == nil {
			sw.Publisher = v
		}
		if v, _, err := sk.GetStringValue("InstallDate"); err == nil {
			sw.InstallDate = formatInstallDate(v)
		}
		if v, _, err := sk.GetIntegerValue("EstimatedSize"); err == nil {
			sw.Size = winSize(v * 1024)
		}
		if v, _, err := sk.GetStringValue("InstallSource"); err == nil {
			sw.Source = v
		}
		if v, _, err := sk.GetStringValue("InstallLocation"); err == nil {
			sw.Location = v
		}
		if v, _, err := sk.GetStringValue("UninstallString"); err == nil {
			sw.Uninstall = v
		}
		sk.Close()

		list = append(list, sw)
	}
	return list, nil
}

// formatInstallDate turns the registry's YYYYMMDD into YYYY-MM-DD; an
// unparseable value yields empty, matching the other optional fields.
func formatInstallDate(raw string) string {
	t, err := time.Parse("20060102", raw)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// winSize renders bytes in 1024-based units with Windows-style labels.
func winSize(n uint64) string {
	return strings.Replace(humanize.IBytes(n), "iB", "B", 1)
}

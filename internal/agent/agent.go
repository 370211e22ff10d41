// Package agent holds the host identity and the synchronous inventory
// probe the RPC handlers and the check-in producer read from.
package agent

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ironhive/agent/internal/msg"
)

// Version is stamped at build time; the default marks local builds.
var Version = "0.1.0"

// NotFoundProcessError reports a kill request for a PID the probe cannot
// see.
type NotFoundProcessError struct {
	PID uint32
}

func (e *NotFoundProcessError) Error() string {
	return fmt.Sprintf("not found process %d", e.PID)
}

// KillProcessFailedError reports a termination request the OS refused.
type KillProcessFailedError struct {
	PID uint32
}

func (e *KillProcessFailedError) Error() string {
	return fmt.Sprintf("kill process %d failed", e.PID)
}

// Agent is the per-process identity plus the host probe.
type Agent struct {
	AgentID  string
	hostname string
	version  string
}

func New(agentID string) *Agent {
	hostname, _ := os.Hostname()
	return &Agent{
		AgentID:  agentID,
		hostname: hostname,
		version:  Version,
	}
}

func (a *Agent) Version() string  { return a.version }
func (a *Agent) Hostname() string { return a.hostname }

// CPUUsage samples global CPU utilization over a short window.
func (a *Agent) CPUUsage() (float32, error) {
	percents, err := cpu.Percent(time.Second, false)
	if err != nil {
		return 0, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return float32(percents[0]), nil
}

func (a *Agent) LoadAvg() (one, five, fifteen float64, err error) {
	avg, err := load.Avg()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("load average: %w", err)
	}
	return avg.Load1, avg.Load5, avg.Load15, nil
}

// Disks lists mounted filesystems with human-readable base-10 sizes.
// Loopback and devfs mounts are noise on Unix and filtered out.
func (a *Agent) Disks() ([]msg.Disk, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	disks := make([]msg.Disk, 0, len(parts))
	for _, p := range parts {
		if runtime.GOOS != "windows" &&
			(strings.Contains(p.Device, "dev/loop") || strings.Contains(p.Device, "devfs")) {
			continue
		}
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		disks = append(disks, msg.Disk{
			Device:  p.Device,
			Fstype:  p.Fstype,
			Total:   humanize.Bytes(usage.Total),
			Used:    humanize.Bytes(usage.Used),
			Free:    humanize.Bytes(usage.Free),
			Percent: int(usage.Used * 100 / usage.Total),
		})
	}
	return disks, nil
}

// Procs lists running processes, excluding the idle/kernel PID 0. Rows
// that disappear mid-walk are skipped.
func (a *Agent) Procs() ([]msg.ProcessMsg, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	msgs := make([]msg.ProcessMsg, 0, len(procs))
	for _, p := range procs {
		if p.Pid == 0 {
			continue
		}
		name, err := p.Name()
		if err != nil {
			continue
		}
		var membytes uint64
		if mi, err := p.MemoryInfo(); err == nil && mi != nil {
			membytes = mi.RSS
		}
		username, _ := p.Username()
		var uid string
		if uids, err := p.Uids(); err == nil && len(uids) > 0 {
			uid = fmt.Sprintf("%d", uids[0])
		}
		cpuPercent, _ := p.CPUPercent()
		msgs = append(msgs, msg.ProcessMsg{
			Name:       name,
			PID:        uint32(p.Pid),
			MemBytes:   membytes,
			Username:   username,
			ID:         uid,
			CPUPercent: fmt.Sprintf("%.1f%%", cpuPercent),
		})
	}
	return msgs, nil
}

// KillProc requests termination of one process.
func (a *Agent) KillProc(pid uint32) error {
	if pid == 0 {
		return &NotFoundProcessError{PID: pid}
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return &NotFoundProcessError{PID: pid}
	}
	if err := p.Kill(); err != nil {
		return &KillProcessFailedError{PID: pid}
	}
	return nil
}

// OSString renders "<long os version> <arch> <kernel version>".
func (a *Agent) OSString() string {
	var osPart, kernel string
	if info, err := host.Info(); err == nil {
		osPart = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
		kernel = info.KernelVersion
	}
	return fmt.Sprintf("%s %s %s", osPart, runtime.GOARCH, kernel)
}

// TotalRAM returns physical memory in bytes.
func (a *Agent) TotalRAM() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.Total
}

// BootTime returns the host boot time as a Unix timestamp.
func (a *Agent) BootTime() uint64 {
	t, err := host.BootTime()
	if err != nil {
		return 0
	}
	return t
}

// LoggedOnUser returns the user the agent process runs as.
func LoggedOnUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

package agent

import (
	"errors"
	"math"
	"runtime"
	"strings"
	"testing"
)

func TestLoadAvg(t *testing.T) {
	a := New("test-agent")
	one, five, fifteen, err := a.LoadAvg()
	if err != nil {
		t.Fatalf("load avg: %v", err)
	}
	for _, v := range []float64{one, five, fifteen} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			t.Errorf("load average %v is not a plausible value", v)
		}
	}
}

func TestDisks(t *testing.T) {
	a := New("test-agent")
	disks, err := a.Disks()
	if err != nil {
		t.Fatalf("disks: %v", err)
	}
	for _, d := range disks {
		if runtime.GOOS != "windows" &&
			(strings.Contains(d.Device, "dev/loop") || strings.Contains(d.Device, "devfs")) {
			t.Errorf("filtered device leaked through: %q", d.Device)
		}
		if d.Percent < 0 || d.Percent > 100 {
			t.Errorf("%s: percent = %d", d.Device, d.Percent)
		}
		if d.Total == "" {
			t.Errorf("%s: empty total", d.Device)
		}
	}
}

func TestProcs(t *testing.T) {
	a := New("test-agent")
	procs, err := a.Procs()
	if err != nil {
		t.Fatalf("procs: %v", err)
	}
	if len(procs) == 0 {
		t.Fatal("no processes reported")
	}
	for _, p := range procs {
		if p.PID == 0 {
			t.Error("PID 0 not filtered")
		}
		if !strings.HasSuffix(p.CPUPercent, "%") {
			t.Errorf("cpu_percent = %q", p.CPUPercent)
		}
	}
}

func TestKillProcNotFound(t *testing.T) {
	a := New("test-agent")
	err := a.KillProc(0)
	var notFound *NotFoundProcessError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want NotFoundProcessError", err)
	}
}

func TestOSString(t *testing.T) {
	a := New("test-agent")
	s := a.OSString()
	if !strings.Contains(s, runtime.GOARCH) {
		t.Errorf("os string %q missing arch", s)
	}
}

func TestHostFacts(t *testing.T) {
	a := New("test-agent")
	if a.TotalRAM() == 0 {
		t.Error("total ram = 0")
	}
	if a.BootTime() == 0 {
		t.Error("boot time = 0")
	}
	if LoggedOnUser() == "" {
		t.Error("empty logged on user")
	}
}

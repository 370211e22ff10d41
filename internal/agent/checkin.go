package agent

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/nats-io/nats.go"

	"github.com/ironhive/agent/internal/msg"
	"github.com/ironhive/agent/internal/publicip"
	"github.com/ironhive/agent/internal/winsvc"
	"github.com/ironhive/agent/internal/wmi"
)

// Checkin publishes inventory snapshots on the agent's own subject with
// the mode string as reply subject, so a controller can subscribe to the
// agent and classify frames by reply.
type Checkin struct {
	Agent *Agent
	Conn  *nats.Conn
	WMI   *wmi.Manager
}

// Publish builds and sends one snapshot for the given mode.
func (c *Checkin) Publish(mode msg.AgentMode) error {
	var payload any

	switch mode {
	case msg.ModeHello:
		payload = msg.CheckInNats{
			AgentID: c.Agent.AgentID,
			Version: c.Agent.Version(),
		}
	case msg.ModeWinSvc:
		svcs, err := winsvc.List()
		if err != nil {
			return err
		}
		payload = msg.WinSvcNats{AgentID: c.Agent.AgentID, WinSvcs: svcs}
	case msg.ModeAgentInfo:
		payload = msg.AgentInfoNats{
			AgentID:      c.Agent.AgentID,
			Username:     LoggedOnUser(),
			Hostname:     c.Agent.Hostname(),
			OS:           c.Agent.OSString(),
			Plat:         runtime.GOOS,
			TotalRAM:     c.Agent.TotalRAM(),
			BootTime:     c.Agent.BootTime(),
			RebootNeeded: RebootRequired(),
			Arch:         runtime.GOARCH,
		}
	case msg.ModeWMI:
		inventory, err := c.WMI.Fetch()
		if err != nil {
			return err
		}
		payload = msg.WinWMINats{AgentID: c.Agent.AgentID, WMI: inventory}
	case msg.ModeDisks:
		disks, err := c.Agent.Disks()
		if err != nil {
			return err
		}
		payload = msg.WinDisksNats{AgentID: c.Agent.AgentID, Disks: disks}
	case msg.ModePublicIP:
		ip, err := publicip.Fetch()
		if err != nil {
			return err
		}
		payload = msg.PublicIPNats{AgentID: c.Agent.AgentID, PublicIP: ip}
	default:
		return fmt.Errorf("unknown checkin mode %q", mode)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", mode, err)
	}
	if err := c.Conn.PublishRequest(c.Agent.AgentID, string(mode), data); err != nil {
		return fmt.Errorf("publish %s snapshot: %w", mode, err)
	}
	return nil
}

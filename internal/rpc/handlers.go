package rpc

import (
	"fmt"
	"time"

	"github.com/ironhive/agent/internal/agent"
	"github.com/ironhive/agent/internal/cmdexec"
	"github.com/ironhive/agent/internal/msg"
	"github.com/ironhive/agent/internal/publicip"
)

// fetchPublicIP is swappable in tests that run without internet access.
var fetchPublicIP = publicip.Fetch

// sysInfoModes is the snapshot sequence a sysinfo request publishes.
var sysInfoModes = []msg.AgentMode{
	msg.ModeAgentInfo,
	msg.ModeDisks,
	msg.ModeWMI,
	msg.ModePublicIP,
}

// handle maps one decoded request to its response. Variants tied to
// Windows machinery go through the platform-split handlers.
func (ih *Ironhive) handle(req msg.Request) (msg.Response, error) {
	switch r := req.(type) {
	case msg.Ping:
		return msg.Pong{}, nil

	case msg.PatchMgmt:
		if err := agent.PatchMgmt(r.Enable); err != nil {
			return nil, err
		}
		return msg.Ok{}, nil

	case msg.Procs:
		msgs, err := ih.Agent.Procs()
		if err != nil {
			return nil, err
		}
		return msg.ProcessMsgResp{Msgs: msgs}, nil

	case msg.KillProc:
		if err := ih.Agent.KillProc(r.ProcPID); err != nil {
			return nil, err
		}
		return msg.Ok{}, nil

	case msg.RawCmd:
		out, err := cmdexec.CmdShell{
			Shell:   r.Shell,
			Command: r.Command,
			Timeout: time.Duration(r.Timeout),
		}.Run()
		if err != nil {
			return nil, err
		}
		results := string(out.Stdout)
		if len(out.Stderr) > 0 {
			results = string(out.Stderr)
		}
		return msg.RawCMDResp{Results: results}, nil

	case msg.RunScript:
		start := time.Now()
		out, err := cmdexec.CmdScript{
			Code:    r.Code,
			Mode:    r.Mode,
			Args:    r.ScriptArgs,
			EnvVars: r.EnvVars,
			Timeout: time.Duration(r.Timeout),
		}.Run()
		if err != nil {
			return nil, err
		}
		return msg.RunScriptResp{
			Stdout:        string(out.Stdout),
			Stderr:        string(out.Stderr),
			Retcode:       int32(out.ExitCode),
			ExecutionTime: msg.Duration(time.Since(start)),
			ID:            r.ID,
		}, nil

	case msg.RebootNow:
		if err := agent.RebootNow(); err != nil {
			return nil, err
		}
		return msg.Ok{}, nil

	case msg.NeedsReboot:
		return msg.NeedsRebootResp{Needs: agent.RebootRequired()}, nil

	case msg.SysInfo:
		for _, mode := range sysInfoModes {
			if err := ih.checkin.Publish(mode); err != nil {
				return nil, err
			}
		}
		return msg.Ok{}, nil

	case msg.WMI:
		if err := ih.checkin.Publish(msg.ModeWMI); err != nil {
			return nil, err
		}
		return msg.Ok{}, nil

	case msg.CpuLoadAvg:
		one, five, fifteen, err := ih.Agent.LoadAvg()
		if err != nil {
			return nil, err
		}
		return msg.CpuLoadAvgResp{One: one, Five: five, Fifteen: fifteen}, nil

	case msg.CpuUsage:
		usage, err := ih.Agent.CPUUsage()
		if err != nil {
			return nil, err
		}
		return msg.CpuUsageResp{Usage: usage}, nil

	case msg.PublicIP:
		ip, err := fetchPublicIP()
		if err != nil {
			return nil, err
		}
		return msg.PublicIPResp{IP: ip}, nil

	case msg.Checkin:
		if err := ih.checkin.Publish(r.Mode); err != nil {
			return nil, err
		}
		return msg.Ok{}, nil

	case msg.SoftwareList:
		return ih.handleSoftwareList()

	case msg.InstallChoco:
		return ih.handleInstallChoco()

	case msg.InstallWithChoco:
		return ih.handleInstallWithChoco(r.ChocoProgName)

	case msg.WinServices:
		return ih.handleWinServices()

	case msg.WinSvcDetail:
		return ih.handleWinSvcDetail(r.Name)

	case msg.WinSvcAction:
		return ih.handleWinSvcAction(r.Name, r.Action), nil

	case msg.EditWinSvc:
		return ih.handleEditWinSvc(r.Name, r.StartType), nil

	case msg.GetWinUpdates:
		return ih.handleGetWinUpdates()

	case msg.InstallWinUpdates:
		return ih.handleInstallWinUpdates(r.UpdateGUIDs)

	default:
		return nil, fmt.Errorf("unhandled request %q", req.Func())
	}
}

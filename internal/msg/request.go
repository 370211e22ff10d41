package msg

import (
	"encoding/json"
	"fmt"
)

// Request is one decoded controller request. The concrete type carries the
// variant fields; Func returns the lowercase wire discriminant.
type Request interface {
	Func() string
}

type Ping struct{}

type PatchMgmt struct {
	Enable bool `json:"patch_mgmnt"`
}

type Procs struct{}

type KillProc struct {
	ProcPID uint32 `json:"proc_pid"`
}

type RawCmd struct {
	Shell   string   `json:"shell"`
	Command string   `json:"command"`
	Timeout Duration `json:"timeout"`
}

type WinServices struct{}

type WinSvcDetail struct {
	Name string `json:"name"`
}

type WinSvcAction struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

type EditWinSvc struct {
	Name      string `json:"name"`
	StartType string `json:"start_type"`
}

type RunScript struct {
	Code       string            `json:"code"`
	Mode       ScriptMode        `json:"mode"`
	ScriptArgs []string          `json:"script_args"`
	Timeout    Duration          `json:"timeout"`
	EnvVars    map[string]string `json:"env_vars"`
	ID         int32             `json:"id"`
}

type SoftwareList struct{}

type RebootNow struct{}

type NeedsReboot struct{}

type SysInfo struct{}

type WMI struct{}

type CpuLoadAvg struct{}

type CpuUsage struct{}

type PublicIP struct{}

type InstallChoco struct{}

type InstallWithChoco struct {
	ChocoProgName string `json:"choco_prog_name"`
}

type GetWinUpdates struct{}

type InstallWinUpdates struct {
	UpdateGUIDs []string `json:"update_guids"`
}

type Checkin struct {
	Mode AgentMode `json:"mode"`
}

func (Ping) Func() string              { return "ping" }
func (PatchMgmt) Func() string         { return "patchmgmt" }
func (Procs) Func() string             { return "procs" }
func (KillProc) Func() string          { return "killproc" }
func (RawCmd) Func() string            { return "rawcmd" }
func (WinServices) Func() string       { return "winservices" }
func (WinSvcDetail) Func() string      { return "winsvcdetail" }
func (WinSvcAction) Func() string      { return "winsvcaction" }
func (EditWinSvc) Func() string        { return "editwinsvc" }
func (RunScript) Func() string         { return "runscript" }
func (SoftwareList) Func() string      { return "softwarelist" }
func (RebootNow) Func() string         { return "rebootnow" }
func (NeedsReboot) Func() string       { return "needsreboot" }
func (SysInfo) Func() string           { return "sysinfo" }
func (WMI) Func() string               { return "wmi" }
func (CpuLoadAvg) Func() string        { return "cpuloadavg" }
func (CpuUsage) Func() string          { return "cpuusage" }
func (PublicIP) Func() string          { return "publicip" }
func (InstallChoco) Func() string      { return "installchoco" }
func (InstallWithChoco) Func() string  { return "installwithchoco" }
func (GetWinUpdates) Func() string     { return "getwinupdates" }
func (InstallWinUpdates) Func() string { return "installwinupdates" }
func (Checkin) Func() string           { return "checkin" }

// DecodeRequest parses one request frame. The "func" discriminant selects
// the variant; omitted timeouts default to DefaultTimeout; an absent or
// unknown discriminant is a decode failure.
func DecodeRequest(data []byte) (Request, error) {
	var env struct {
		Func string `json:"func"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode request envelope: %w", err)
	}
	if env.Func == "" {
		return nil, fmt.Errorf("request without func tag")
	}

	switch env.Func {
	case "ping":
		return Ping{}, nil
	case "procs":
		return Procs{}, nil
	case "winservices":
		return WinServices{}, nil
	case "softwarelist":
		return SoftwareList{}, nil
	case "rebootnow":
		return RebootNow{}, nil
	case "needsreboot":
		return NeedsReboot{}, nil
	case "sysinfo":
		return SysInfo{}, nil
	case "wmi":
		return WMI{}, nil
	case "cpuloadavg":
		return CpuLoadAvg{}, nil
	case "cpuusage", "cpuussage":
		// "cpuussage" is a misspelling older controllers still send.
		return CpuUsage{}, nil
	case "publicip":
		return PublicIP{}, nil
	case "installchoco":
		return InstallChoco{}, nil
	case "getwinupdates":
		return GetWinUpdates{}, nil
	case "patchmgmt":
		var r PatchMgmt
		return r, json.Unmarshal(data, &r)
	case "killproc":
		var r KillProc
		return r, json.Unmarshal(data, &r)
	case "rawcmd":
		// A pre-set timeout survives unmarshal when the frame omits it.
		r := RawCmd{Timeout: Duration(DefaultTimeout)}
		return r, json.Unmarshal(data, &r)
	case "winsvcdetail":
		var r WinSvcDetail
		return r, json.Unmarshal(data, &r)
	case "winsvcaction":
		var r WinSvcAction
		return r, json.Unmarshal(data, &r)
	case "editwinsvc":
		var r EditWinSvc
		return r, json.Unmarshal(data, &r)
	case "runscript":
		r := RunScript{Timeout: Duration(DefaultTimeout)}
		return r, json.Unmarshal(data, &r)
	case "installwithchoco":
		var r InstallWithChoco
		return r, json.Unmarshal(data, &r)
	case "installwinupdates":
		var r InstallWinUpdates
		return r, json.Unmarshal(data, &r)
	case "checkin":
		var r Checkin
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		if !r.Mode.Valid() {
			return nil, fmt.Errorf("checkin without a valid mode")
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown request func %q", env.Func)
	}
}

// EncodeRequest renders a request frame with its "func" discriminant.
// The agent itself only decodes requests; this is for clients and tests.
func EncodeRequest(r Request) ([]byte, error) {
	fields, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return injectTag(fields, "func", r.Func())
}

// injectTag prepends a discriminant key to an already-encoded JSON object.
func injectTag(obj []byte, key, value string) ([]byte, error) {
	if len(obj) < 2 || obj[0] != '{' {
		return nil, fmt.Errorf("variant did not encode as an object: %s", obj)
	}
	tag, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(obj)+len(key)+len(tag)+4)
	out = append(out, '{', '"')
	out = append(out, key...)
	out = append(out, '"', ':')
	out = append(out, tag...)
	if string(obj) != "{}" {
		out = append(out, ',')
	}
	out = append(out, obj[1:]...)
	return out, nil
}

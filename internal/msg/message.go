// Package msg defines the wire types exchanged between the agent and its
// controllers over the broker: the tagged request and response unions, the
// check-in snapshot payloads, and the script/check-in mode enums.
//
// All payloads are JSON. Requests carry a "func" discriminant, responses a
// "resp" discriminant; check-in snapshots are plain objects whose kind is
// carried by the reply subject instead.
package msg

import (
	"encoding/json"
	"fmt"
)

// AgentMode tags one of the six check-in snapshot kinds. The wire value
// doubles as the reply subject of the published snapshot frame.
type AgentMode string

const (
	ModeHello     AgentMode = "agent-hello"
	ModeWinSvc    AgentMode = "agent-winsvc"
	ModeAgentInfo AgentMode = "agent-agentinfo"
	ModeWMI       AgentMode = "agent-wmi"
	ModeDisks     AgentMode = "agent-disks"
	ModePublicIP  AgentMode = "agent-publicip"
)

// AllModes returns the six check-in modes in their canonical order.
func AllModes() []AgentMode {
	return []AgentMode{ModeHello, ModeWinSvc, ModeAgentInfo, ModeWMI, ModeDisks, ModePublicIP}
}

func (m AgentMode) Valid() bool {
	switch m {
	case ModeHello, ModeWinSvc, ModeAgentInfo, ModeWMI, ModeDisks, ModePublicIP:
		return true
	}
	return false
}

func (m *AgentMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode := AgentMode(s)
	if !mode.Valid() {
		return fmt.Errorf("unknown agent mode %q", s)
	}
	*m = mode
	return nil
}

// ScriptMode selects the interpreter for a runscript request. On the wire
// the unit modes are bare strings ("PowerShell", "Cmd", "Directly") and the
// Binary mode is an object: {"Binary":{"path":"python3","ext":".py"}}.
// An absent mode defaults to Directly.
type ScriptMode struct {
	Kind ScriptKind
	// Path and Ext are set for Binary mode only.
	Path string
	Ext  string
}

type ScriptKind int

const (
	ScriptDirectly ScriptKind = iota
	ScriptPowerShell
	ScriptCmd
	ScriptBinary
)

// FileExt returns the temp-file extension for the mode.
func (m ScriptMode) FileExt() string {
	switch m.Kind {
	case ScriptPowerShell:
		return ".ps1"
	case ScriptCmd:
		return ".bat"
	case ScriptBinary:
		return m.Ext
	default:
		return ""
	}
}

func (m ScriptMode) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case ScriptPowerShell:
		return json.Marshal("PowerShell")
	case ScriptCmd:
		return json.Marshal("Cmd")
	case ScriptBinary:
		return json.Marshal(map[string]any{
			"Binary": map[string]string{"path": m.Path, "ext": m.Ext},
		})
	default:
		return json.Marshal("Directly")
	}
}

func (m *ScriptMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "PowerShell":
			*m = ScriptMode{Kind: ScriptPowerShell}
		case "Cmd":
			*m = ScriptMode{Kind: ScriptCmd}
		case "Directly":
			*m = ScriptMode{Kind: ScriptDirectly}
		default:
			return fmt.Errorf("unknown script mode %q", s)
		}
		return nil
	}

	var obj struct {
		Binary *struct {
			Path string `json:"path"`
			Ext  string `json:"ext"`
		} `json:"Binary"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Binary == nil {
		return fmt.Errorf("unknown script mode %s", data)
	}
	*m = ScriptMode{Kind: ScriptBinary, Path: obj.Binary.Path, Ext: obj.Binary.Ext}
	return nil
}

// CheckInNats is the agent-hello snapshot payload.
type CheckInNats struct {
	AgentID string `json:"agent_id"`
	Version string `json:"version"`
}

// AgentInfoNats is the agent-agentinfo snapshot payload.
type AgentInfoNats struct {
	AgentID      string `json:"agent_id"`
	Username     string `json:"logged_in_username"`
	Hostname     string `json:"hostname"`
	OS           string `json:"operating_system"`
	Plat         string `json:"plat"`
	TotalRAM     uint64 `json:"total_ram"`
	BootTime     uint64 `json:"boot_time"`
	RebootNeeded bool   `json:"needs_reboot"`
	Arch         string `json:"arch"`
}

// WinSvcNats is the agent-winsvc snapshot payload.
type WinSvcNats struct {
	AgentID string           `json:"agent_id"`
	WinSvcs []WindowsService `json:"services"`
}

// WinWMINats is the agent-wmi snapshot payload. WMI carries the dynamic
// class-name → rows mapping produced by the inventory collector.
type WinWMINats struct {
	AgentID string `json:"agent_id"`
	WMI     any    `json:"wmi"`
}

// WinDisksNats is the agent-disks snapshot payload.
type WinDisksNats struct {
	AgentID string `json:"agent_id"`
	Disks   []Disk `json:"disks"`
}

// PublicIPNats is the agent-publicip snapshot payload.
type PublicIPNats struct {
	AgentID  string `json:"agent_id"`
	PublicIP string `json:"public_ip"`
}

// WindowsService describes one SCM service record.
type WindowsService struct {
	Name             string `json:"name"`
	Status           string `json:"status"`
	DisplayName      string `json:"display_name"`
	BinPath          string `json:"binpath"`
	Description      string `json:"description"`
	Username         string `json:"username"`
	PID              uint32 `json:"pid"`
	StartType        string `json:"start_type"`
	DelayedAutoStart bool   `json:"autodelay"`
}

// Disk is one filtered filesystem entry with human-readable sizes.
type Disk struct {
	Device  string `json:"device"`
	Fstype  string `json:"fstype"`
	Total   string `json:"total"`
	Used    string `json:"used"`
	Free    string `json:"free"`
	Percent int    `json:"percent"`
}

// WinSoftware is one installed-software row read from the Uninstall
// registry keys.
type WinSoftware struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Publisher   string `json:"publisher"`
	InstallDate string `json:"install_date"`
	Size        string `json:"size"`
	Source      string `json:"source"`
	Location    string `json:"location"`
	Uninstall   string `json:"uninstall"`
}

// ProcessMsg is one process row returned by the procs request.
type ProcessMsg struct {
	Name       string `json:"name"`
	PID        uint32 `json:"pid"`
	MemBytes   uint64 `json:"membytes"`
	Username   string `json:"username"`
	ID         string `json:"id"`
	CPUPercent string `json:"cpu_percent"`
}

// WUAPackage is one Windows Update Agent search result.
type WUAPackage struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Categories     []string `json:"categories"`
	CategoryIDs    []string `json:"category_ids"`
	KBArticleIDs   []string `json:"kb_article_ids"`
	MoreInfoURLs   []string `json:"more_info_urls"`
	SupportURL     string   `json:"support_url"`
	GUID           string   `json:"guid"`
	RevisionNumber int32    `json:"revision_number"`
	Severity       string   `json:"severity"`
	Installed      bool     `json:"installed"`
	Downloaded     bool     `json:"downloaded"`
}

package msg

import (
	"encoding/json"
	"fmt"
	"log"
)

// Response is one reply frame. Resp returns the lowercase wire discriminant.
type Response interface {
	Resp() string
}

type Pong struct{}

type ProcessMsgResp struct {
	Msgs []ProcessMsg `json:"msgs"`
}

type Ok struct{}

type RawCMDResp struct {
	Results string `json:"results"`
}

type RunScriptResp struct {
	Stdout        string   `json:"stdout"`
	Stderr        string   `json:"stderr"`
	Retcode       int32    `json:"retcode"`
	ExecutionTime Duration `json:"execution_time"`
	ID            int32    `json:"id"`
}

type NeedsRebootResp struct {
	Needs bool `json:"needs"`
}

// CpuLoadAvgResp carries the one, five and fifteen minute load averages.
type CpuLoadAvgResp struct {
	One     float64 `json:"one"`
	Five    float64 `json:"five"`
	Fifteen float64 `json:"fifteen"`
}

type CpuUsageResp struct {
	Usage float32 `json:"usage"`
}

type PublicIPResp struct {
	IP string `json:"ip"`
}

type WinSoftwareNats struct {
	Software []WinSoftware `json:"software"`
}

type WinUpdateResult struct {
	Updates []WUAPackage `json:"updates"`
}

type WinServicesResp struct {
	Services []WindowsService `json:"services"`
}

type WinSvcDetailResp struct {
	Service WindowsService `json:"service"`
}

type WinSvcResp struct {
	Success  bool   `json:"success"`
	Errormsg string `json:"errormsg"`
}

func (Pong) Resp() string             { return "pong" }
func (ProcessMsgResp) Resp() string   { return "processmsg" }
func (Ok) Resp() string               { return "ok" }
func (RawCMDResp) Resp() string       { return "rawcmdresp" }
func (RunScriptResp) Resp() string    { return "runscriptresp" }
func (NeedsRebootResp) Resp() string  { return "needsreboot" }
func (CpuLoadAvgResp) Resp() string   { return "cpuloadavg" }
func (CpuUsageResp) Resp() string     { return "cpuusage" }
func (PublicIPResp) Resp() string     { return "publicip" }
func (WinSoftwareNats) Resp() string  { return "winsoftwarenats" }
func (WinUpdateResult) Resp() string  { return "winupdateresult" }
func (WinServicesResp) Resp() string  { return "winservices" }
func (WinSvcDetailResp) Resp() string { return "winsvcdetail" }
func (WinSvcResp) Resp() string       { return "winsvcresp" }

// EncodeResponse renders a reply frame with its "resp" discriminant. The
// response set is closed and every member encodes cleanly, so failures are
// logged rather than surfaced; callers always get a publishable payload.
func EncodeResponse(r Response) []byte {
	fields, err := json.Marshal(r)
	if err != nil {
		log.Printf("[msg] encode %s response: %v", r.Resp(), err)
		return nil
	}
	out, err := injectTag(fields, "resp", r.Resp())
	if err != nil {
		log.Printf("[msg] encode %s response: %v", r.Resp(), err)
		return nil
	}
	return out
}

// DecodeResponse parses one reply frame by its "resp" discriminant. The
// agent only encodes responses; this is for clients and tests.
func DecodeResponse(data []byte) (Response, error) {
	var env struct {
		Resp string `json:"resp"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}

	switch env.Resp {
	case "pong":
		return Pong{}, nil
	case "ok":
		return Ok{}, nil
	case "processmsg":
		var r ProcessMsgResp
		return r, json.Unmarshal(data, &r)
	case "rawcmdresp":
		var r RawCMDResp
		return r, json.Unmarshal(data, &r)
	case "runscriptresp":
		var r RunScriptResp
		return r, json.Unmarshal(data, &r)
	case "needsreboot":
		var r NeedsRebootResp
		return r, json.Unmarshal(data, &r)
	case "cpuloadavg":
		var r CpuLoadAvgResp
		return r, json.Unmarshal(data, &r)
	case "cpuusage":
		var r CpuUsageResp
		return r, json.Unmarshal(data, &r)
	case "publicip":
		var r PublicIPResp
		return r, json.Unmarshal(data, &r)
	case "winsoftwarenats":
		var r WinSoftwareNats
		return r, json.Unmarshal(data, &r)
	case "winupdateresult":
		var r WinUpdateResult
		return r, json.Unmarshal(data, &r)
	case "winservices":
		var r WinServicesResp
		return r, json.Unmarshal(data, &r)
	case "winsvcdetail":
		var r WinSvcDetailResp
		return r, json.Unmarshal(data, &r)
	case "winsvcresp":
		var r WinSvcResp
		return r, json.Unmarshal(data, &r)
	default:
		return nil, fmt.Errorf("unknown response resp %q", env.Resp)
	}
}

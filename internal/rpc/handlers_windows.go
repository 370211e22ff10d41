//go:build windows

package rpc

import (
	"time"

	"github.com/ironhive/agent/internal/choco"
	"github.com/ironhive/agent/internal/msg"
	"github.com/ironhive/agent/internal/winsvc"
	"github.com/ironhive/agent/internal/wua"
)

func (ih *Ironhive) handleSoftwareList() (msg.Response, error) {
	software, err := winsvc.InstalledSoftware()
	if err != nil {
		return nil, err
	}
	return msg.WinSoftwareNats{Software: software}, nil
}

func (ih *Ironhive) handleInstallChoco() (msg.Response, error) {
	if err := choco.Install(); err != nil {
		return nil, err
	}
	return msg.Ok{}, nil
}

// handleInstallWithChoco reuses the script response shape; id -1 marks a
// package install rather than a submitted script.
func (ih *Ironhive) handleInstallWithChoco(name string) (msg.Response, error) {
	start := time.Now()
	out, err := choco.InstallPackage(name)
	if err != nil {
		return nil, err
	}
	return msg.RunScriptResp{
		Stdout:        string(out.Stdout),
		Stderr:        string(out.Stderr),
		Retcode:       int32(out.ExitCode),
		ExecutionTime: msg.Duration(time.Since(start)),
		ID:            -1,
	}, nil
}

func (ih *Ironhive) handleWinServices() (msg.Response, error) {
	services, err := winsvc.List()
	if err != nil {
		return nil, err
	}
	return msg.WinServicesResp{Services: services}, nil
}

func (ih *Ironhive) handleWinSvcDetail(name string) (msg.Response, error) {
	service, err := winsvc.Detail(name)
	if err != nil {
		return nil, err
	}
	return msg.WinSvcDetailResp{Service: service}, nil
}

// Service control failures go back in the payload, not as a service
// error, so controllers always get a winsvcresp frame.
func (ih *Ironhive) handleWinSvcAction(name, action string) msg.Response {
	if err := winsvc.Control(name, action); err != nil {
		return msg.WinSvcResp{Success: false, Errormsg: err.Error()}
	}
	return msg.WinSvcResp{Success: true}
}

func (ih *Ironhive) handleEditWinSvc(name, startType string) msg.Response {
	if err := winsvc.Edit(name, startType); err != nil {
		return msg.WinSvcResp{Success: false, Errormsg: err.Error()}
	}
	return msg.WinSvcResp{Success: true}
}

func (ih *Ironhive) handleGetWinUpdates() (msg.Response, error) {
	return ih.withUpdateLock(func() (msg.Response, error) {
		updates, err := wua.GetUpdates()
		if err != nil {
			return nil, err
		}
		return msg.WinUpdateResult{Updates: updates}, nil
	})
}

func (ih *Ironhive) handleInstallWinUpdates(guids []string) (msg.Response, error) {
	return ih.withUpdateLock(func() (msg.Response, error) {
		needs, err := wua.InstallUpdates(guids)
		if err != nil {
			return nil, err
		}
		return msg.NeedsRebootResp{Needs: needs}, nil
	})
}

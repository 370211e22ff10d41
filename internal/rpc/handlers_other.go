//go:build !windows

package rpc

import (
	"github.com/ironhive/agent/internal/msg"
	"github.com/ironhive/agent/internal/wua"
)

// Off Windows most of these report UnsupportedRequest; service control
// fakes success and update listing returns an empty result, matching
// what a controller expects from a non-Windows host.

func (ih *Ironhive) handleSoftwareList() (msg.Response, error) {
	return nil, &UnsupportedRequestError{Name: "SoftwareList"}
}

func (ih *Ironhive) handleInstallChoco() (msg.Response, error) {
	return nil, &UnsupportedRequestError{Name: "InstallChoco"}
}

func (ih *Ironhive) handleInstallWithChoco(string) (msg.Response, error) {
	return nil, &UnsupportedRequestError{Name: "InstallWithChoco"}
}

func (ih *Ironhive) handleWinServices() (msg.Response, error) {
	return nil, &UnsupportedRequestError{Name: "WinServices"}
}

func (ih *Ironhive) handleWinSvcDetail(string) (msg.Response, error) {
	return nil, &UnsupportedRequestError{Name: "WinSvcDetail"}
}

func (ih *Ironhive) handleWinSvcAction(string, string) msg.Response {
	return msg.WinSvcResp{Success: true}
}

func (ih *Ironhive) handleEditWinSvc(string, string) msg.Response {
	return msg.WinSvcResp{Success: true}
}

func (ih *Ironhive) handleGetWinUpdates() (msg.Response, error) {
	updates, err := wua.GetUpdates()
	if err != nil {
		return nil, err
	}
	return msg.WinUpdateResult{Updates: updates}, nil
}

func (ih *Ironhive) handleInstallWinUpdates([]string) (msg.Response, error) {
	return nil, &UnsupportedRequestError{Name: "InstallWinUpdates"}
}

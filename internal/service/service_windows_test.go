//go:build windows

package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sys/windows/svc"
)

func awaitState(t *testing.T, changes <-chan svc.Status, want svc.State) {
	t.Helper()
	for {
		select {
		case st := <-changes:
			if st.State == want {
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("state %v never reported", want)
		}
	}
}

func TestExecuteStopsOnSCMRequest(t *testing.T) {
	handler := &AgentService{RunFunc: func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}}

	r := make(chan svc.ChangeRequest)
	changes := make(chan svc.Status, 8)
	done := make(chan uint32, 1)
	go func() {
		_, errno := handler.Execute(nil, r, changes)
		done <- errno
	}()

	awaitState(t, changes, svc.Running)
	r <- svc.ChangeRequest{Cmd: svc.Interrogate, CurrentStatus: svc.Status{State: svc.Running}}
	awaitState(t, changes, svc.Running)

	r <- svc.ChangeRequest{Cmd: svc.Stop}
	awaitState(t, changes, svc.StopPending)

	select {
	case errno := <-done:
		if errno != 0 {
			t.Errorf("errno = %d", errno)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after stop")
	}
}

func TestExecuteReportsRunError(t *testing.T) {
	handler := &AgentService{RunFunc: func(ctx context.Context) error {
		return context.DeadlineExceeded
	}}

	r := make(chan svc.ChangeRequest)
	changes := make(chan svc.Status, 8)
	_, errno := handler.Execute(nil, r, changes)
	if errno != 1 {
		t.Errorf("errno = %d, want 1", errno)
	}
}

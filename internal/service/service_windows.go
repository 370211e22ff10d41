//go:build windows

// Package service runs the agent under the Windows Service Control
// Manager: Start, Stop, Interrogate and Shutdown are honored, with a
// bounded graceful stop.
package service

import (
	"context"
	"log"
	"time"

	"golang.org/x/sys/windows/svc"
)

// Name is the registered service name.
const Name = "ironhive"

// gracefulStop bounds how long an SCM stop waits for in-flight handlers.
const gracefulStop = 15 * time.Second

// AgentService adapts the RPC loop to svc.Handler.
type AgentService struct {
	RunFunc func(ctx context.Context) error
}

// Execute manages the service lifecycle on behalf of the SCM.
func (s *AgentService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.RunFunc(ctx) }()

	changes <- svc.Status{State: svc.Running, Accepts: svc.AcceptStop | svc.AcceptShutdown}
	log.Println("[service] running under SCM")

	for {
		select {
		case err := <-errCh:
			if err != nil {
				log.Printf("[service] agent exited: %v", err)
				return false, 1
			}
			return false, 0
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				log.Printf("[service] SCM %v requested", c.Cmd)
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				s.awaitStop(errCh)
				return false, 0
			}
		}
	}
}

// awaitStop gives in-flight handlers the graceful-stop window before the
// SCM reports the service stopped.
func (s *AgentService) awaitStop(errCh <-chan error) {
	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("[service] agent exited during stop: %v", err)
		}
	case <-time.After(gracefulStop):
		log.Printf("[service] stop timed out after %s", gracefulStop)
	}
}

// IsWindowsService reports whether the process was started by the SCM.
func IsWindowsService() bool {
	inService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return inService
}

// Run hands the process over to the SCM dispatcher.
func Run(handler *AgentService) error {
	return svc.Run(Name, handler)
}

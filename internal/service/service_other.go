//go:build !windows

// Package service stubs out SCM integration off Windows.
package service

import "context"

// Name is the registered service name.
const Name = "ironhive"

// AgentService adapts the RPC loop to the SCM handler shape.
type AgentService struct {
	RunFunc func(ctx context.Context) error
}

// IsWindowsService always reports false off Windows.
func IsWindowsService() bool { return false }

// Run is a no-op off Windows.
func Run(handler *AgentService) error { return nil }

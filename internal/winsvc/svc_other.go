//go:build !windows

// Package winsvc enumerates and controls Windows services. Off Windows
// only the check-in enumeration stub exists; request handlers reject the
// other operations before reaching this package.
package winsvc

import "github.com/ironhive/agent/internal/msg"

// List reports no services on non-Windows hosts.
func List() ([]msg.WindowsService, error) {
	return []msg.WindowsService{}, nil
}

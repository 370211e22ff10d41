//go:build !windows

// Package wua drives the Windows Update Agent. Off Windows the update
// list is empty; installation is rejected by the request handlers before
// reaching this package.
package wua

import "github.com/ironhive/agent/internal/msg"

func GetUpdates() ([]msg.WUAPackage, error) {
	return []msg.WUAPackage{}, nil
}

//go:build !windows

package installer

// Elevation is only enforced on Windows, where service registration
// needs it.
func isRoot() bool { return true }

func installService(string) error { return nil }

func uninstallService() error { return nil }

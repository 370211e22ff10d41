//go:build !windows

package cmdexec

import "os"

func removeTempFile(path string) error {
	return os.Remove(path)
}

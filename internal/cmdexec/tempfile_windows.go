//go:build windows

package cmdexec

import (
	"os"
	"time"
)

// removeTempFile retries for a while: anti-virus scanners and straggling
// child handles hold files open briefly after the process exits.
func removeTempFile(path string) error {
	for i := 0; i < 99; i++ {
		if os.Remove(path) == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return os.Remove(path)
}

package cmdexec

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
)

var tempFileCounter atomic.Uint64

const tempFileCreateRetries = 1024

// TempFile is a uniquely named file under the OS temp directory that the
// holder removes when done.
type TempFile struct {
	path string
}

func (t *TempFile) Path() string { return t.path }

// NewTempFile writes content to a fresh ironhive-tmp-file-<n><ext> under
// the temp dir. Names come from a process-local counter; creation uses
// create-new semantics and retries on collision. The file is created
// executable so Directly-mode scripts can run it as-is.
func NewTempFile(ext string, content []byte) (*TempFile, error) {
	base := os.TempDir()
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir %s: %w", base, err)
	}

	for try := 0; ; try++ {
		n := tempFileCounter.Add(1) - 1
		path := filepath.Join(base, fmt.Sprintf("ironhive-tmp-file-%d%s", n, ext))

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o700)
		if err != nil {
			if try == tempFileCreateRetries {
				log.Printf("[cmdexec] create tempfile %s failed: %v", path, err)
				return nil, fmt.Errorf("create tempfile %s: %w", path, err)
			}
			continue
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("write tempfile %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return nil, fmt.Errorf("close tempfile %s: %w", path, err)
		}
		return &TempFile{path: path}, nil
	}
}

// Remove deletes the file, tolerating transient locks where the platform
// needs it.
func (t *TempFile) Remove() {
	if err := removeTempFile(t.path); err != nil {
		log.Printf("[cmdexec] remove tempfile %s: %v", t.path, err)
	}
}

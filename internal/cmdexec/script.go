package cmdexec

import (
	"strings"
	"time"

	"github.com/ironhive/agent/internal/msg"
)

// CmdScript materializes code into a temp file and runs it under the
// interpreter the mode selects. The temp file is removed on every exit
// path once the process has finished or timed out.
type CmdScript struct {
	Code     string
	Mode     msg.ScriptMode
	Args     []string
	EnvVars  map[string]string
	Detached bool
	Timeout  time.Duration
}

func (c CmdScript) Run() (Output, error) {
	tmp, err := NewTempFile(c.Mode.FileExt(), []byte(strings.TrimSpace(c.Code)))
	if err != nil {
		return Output{}, err
	}
	defer tmp.Remove()

	opts := scriptOptions(c, tmp.Path())
	return opts.Run()
}

// CmdExe runs a binary as given, without a shell or temp file.
type CmdExe struct {
	Exe      string
	Args     []string
	Detached bool
	Timeout  time.Duration
}

func (c CmdExe) Run() (Output, error) {
	opts := CmdOptions{
		Detached: c.Detached,
		Program:  c.Exe,
		Args:     c.Args,
		Timeout:  c.Timeout,
	}
	return opts.Run()
}

package cmdexec

import "time"

// CmdShell runs one command line through a named shell.
type CmdShell struct {
	Shell    string
	Command  string
	Detached bool
	Timeout  time.Duration
}

func (c CmdShell) Run() (Output, error) {
	return runShell(c)
}

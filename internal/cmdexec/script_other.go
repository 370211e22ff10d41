//go:build !windows

package cmdexec

import "github.com/ironhive/agent/internal/msg"

// scriptOptions maps a script mode to its interpreter invocation. Only
// Binary names an interpreter; everything else executes the temp file
// itself, which NewTempFile creates executable.
func scriptOptions(c CmdScript, tmpPath string) CmdOptions {
	opts := CmdOptions{
		Detached: c.Detached,
		EnvVars:  c.EnvVars,
		Timeout:  c.Timeout,
	}
	if c.Mode.Kind == msg.ScriptBinary {
		opts.Program = c.Mode.Path
		opts.Args = append([]string{tmpPath}, c.Args...)
		return opts
	}
	opts.Program = tmpPath
	opts.Args = c.Args
	return opts
}

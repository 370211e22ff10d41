//go:build windows

package cmdexec

import "github.com/ironhive/agent/internal/msg"

// scriptOptions maps a script mode to its interpreter invocation. Cmd
// mode ignores the temp file: the args are the literal command line.
func scriptOptions(c CmdScript, tmpPath string) CmdOptions {
	opts := CmdOptions{
		Detached: c.Detached,
		EnvVars:  c.EnvVars,
		Timeout:  c.Timeout,
	}
	switch c.Mode.Kind {
	case msg.ScriptPowerShell:
		opts.Program = powershellExe()
		opts.Args = append([]string{
			"-NonInteractive", "-NoProfile", "-ExecutionPolicy", "Bypass", tmpPath,
		}, c.Args...)
	case msg.ScriptBinary:
		opts.Program = c.Mode.Path
		opts.Args = append([]string{tmpPath}, c.Args...)
	case msg.ScriptCmd:
		opts.Program = cmdExe()
		opts.Args = c.Args
	default: // Directly
		opts.Program = tmpPath
		opts.Args = c.Args
	}
	return opts
}

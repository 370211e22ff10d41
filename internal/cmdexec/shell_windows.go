//go:build windows

package cmdexec

// runShell accepts "cmd" and "powershell" only. The cmd tail is passed
// unparsed after /C; powershell gets the command as a single argument.
func runShell(c CmdShell) (Output, error) {
	switch c.Shell {
	case "cmd":
		opts := CmdOptions{
			Detached: c.Detached,
			Program:  cmdExe(),
			Args:     []string{"/C"},
			Timeout:  c.Timeout,
		}
		return opts.run(c.Command)
	case "powershell":
		opts := CmdOptions{
			Detached: c.Detached,
			Program:  powershellExe(),
			Args:     []string{"-NonInteractive", "-NoProfile", c.Command},
			Timeout:  c.Timeout,
		}
		return opts.Run()
	default:
		return Output{}, &UnsupportedShellError{Shell: c.Shell}
	}
}

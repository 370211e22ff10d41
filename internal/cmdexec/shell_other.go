//go:build !windows

package cmdexec

// runShell trusts the named shell and hands it the command with -c.
func runShell(c CmdShell) (Output, error) {
	opts := CmdOptions{
		Detached: c.Detached,
		Program:  c.Shell,
		Args:     []string{"-c", c.Command},
		Timeout:  c.Timeout,
	}
	return opts.Run()
}

// Package cmdexec runs external commands, scripts and binaries with a
// bounded wait. Every invocation family shares one options struct; on
// timeout the child is left to the OS rather than killed, so detached
// children survive the agent.
package cmdexec

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// SignaledExitCode is reported when the process terminated without a
// numeric exit code (killed by signal).
const SignaledExitCode = 85

// CmdOptions is the shared invocation description.
type CmdOptions struct {
	// Detached places the child in its own process group so it is not
	// torn down with the agent.
	Detached bool
	Program  string
	Args     []string
	EnvVars  map[string]string
	Timeout  time.Duration
}

// Output is the captured result of a finished process.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// TimeoutError reports an invocation that outlived its deadline. The
// child keeps running; only the wait is abandoned.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deadline has elapsed after %s", e.After)
}

// UnsupportedShellError reports a rawcmd shell name the platform does
// not accept.
type UnsupportedShellError struct {
	Shell string
}

func (e *UnsupportedShellError) Error() string {
	return fmt.Sprintf("unsupported shell %q", e.Shell)
}

// Run starts the program and waits up to the timeout for it to finish.
func (o CmdOptions) Run() (Output, error) {
	return o.run("")
}

func (o CmdOptions) run(rawTail string) (Output, error) {
	cmd := exec.Command(o.Program, o.Args...)
	if len(o.EnvVars) > 0 {
		env := os.Environ()
		for k, v := range o.EnvVars {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	applySysProcAttr(cmd, o.Detached, rawTail)

	if err := cmd.Start(); err != nil {
		return Output{}, fmt.Errorf("start %s: %w", o.Program, err)
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultWait
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		// The goroutine above keeps draining Wait so the child is
		// reaped whenever it eventually exits.
		return Output{}, &TimeoutError{After: timeout}
	case err := <-done:
		out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
		switch err := err.(type) {
		case nil:
			out.ExitCode = 0
		case *exec.ExitError:
			out.ExitCode = err.ExitCode()
			if out.ExitCode < 0 {
				out.ExitCode = SignaledExitCode
			}
		default:
			return Output{}, fmt.Errorf("wait %s: %w", o.Program, err)
		}
		return out, nil
	}
}

// DefaultWait bounds invocations whose caller did not set a timeout.
const DefaultWait = 15 * time.Second

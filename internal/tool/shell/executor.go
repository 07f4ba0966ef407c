// Package shell runs shell commands for the execute_command tool and for
// commands the user types directly.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// TimeoutExitCode is reported for commands stopped by their timeout.
const TimeoutExitCode = 124

// Output is the outcome of one command run.
type Output struct {
	Stdout      string
	Stderr      string
	ExitCode    int
	Signal      string
	TimedOut    bool
	Interrupted bool
	Truncated   bool
}

// StartError is returned when the shell process cannot be started.
type StartError struct {
	Shell string
	Cause error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Shell, e.Cause)
}

func (e *StartError) Unwrap() error { return e.Cause }

// Executor runs commands through bash, or sh when bash is missing.
type Executor struct {
	shell     string
	maxOutput int
	grace     time.Duration
}

// NewExecutor creates an executor. maxOutput caps stdout and stderr
// separately; grace is how long a timed out command gets between the
// interrupt and the kill.
func NewExecutor(maxOutput int64, grace time.Duration) *Executor {
	shell := "sh"
	if path, err := exec.LookPath("bash"); err == nil {
		shell = path
	}
	return &Executor{shell: shell, maxOutput: int(maxOutput), grace: grace}
}

// Run executes command in dir. On timeout the process group is interrupted,
// then killed after the grace period, and the exit code is TimeoutExitCode.
// When ctx is canceled the process group is killed at once and the output
// is marked Interrupted. Run only returns an error if the shell cannot start.
func (e *Executor) Run(ctx context.Context, command, dir string, timeout time.Duration) (*Output, error) {
	stdout := newCollector(e.maxOutput)
	stderr := newCollector(e.maxOutput)

	cmd := exec.Command(e.shell, "-c", command)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Background children may keep the pipes open after the shell exits.
	cmd.WaitDelay = max(e.grace, 100*time.Millisecond)
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Shell: e.shell, Cause: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	out := &Output{}
	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		killProcess(cmd)
		waitErr = <-done
		out.Interrupted = true
	case <-timer.C:
		interruptProcess(cmd)
		grace := time.NewTimer(e.grace)
		select {
		case waitErr = <-done:
		case <-grace.C:
			killProcess(cmd)
			waitErr = <-done
		}
		grace.Stop()
		out.TimedOut = true
	}

	out.Stdout = stdout.String()
	out.Stderr = stderr.String()
	out.Truncated = stdout.Truncated() || stderr.Truncated()
	out.ExitCode = exitCode(cmd, waitErr)
	out.Signal = signalName(cmd.ProcessState)
	if out.TimedOut {
		out.ExitCode = TimeoutExitCode
	}
	return out, nil
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}

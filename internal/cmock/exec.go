package cmock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/goaux/stacktrace/v2"
)

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec, wiring the child's standard streams to the given ones.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes name with args and waits for it to exit.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := stacktrace.Trace(cmd.Run()); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

// ExitCode maps an error to a process exit status. A failed child process
// passes its own status through; every other error yields 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}

	return 1
}

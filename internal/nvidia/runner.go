package nvidia

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the process is killed.
const waitDelay = time.Second

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec, each bounded by Timeout.
type ExecRunner struct {
	// Timeout bounds a single command, zero means no extra bound.
	Timeout time.Duration
}

// NewExecRunner returns an ExecRunner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run implements Runner. A cancelled ctx kills the process.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", name, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with %d: %s", name, exitErr.ExitCode(), firstLine(stderr.String()))
		}

		return nil, fmt.Errorf("%s: %w", name, err)
	}

	// nvidia-settings reports assignment failures on stderr with a zero exit status.
	if line := errorLine(stderr.String()); line != "" {
		return stdout.Bytes(), fmt.Errorf("%s: %s", name, line)
	}

	return stdout.Bytes(), nil
}

// errorLine returns the first line that starts with "ERROR".
func errorLine(output string) string {
	for line := range strings.Lines(output) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR") {
			return line
		}
	}

	return ""
}

// firstLine returns the first non-empty line of output.
func firstLine(output string) string {
	for line := range strings.Lines(output) {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}

	return "no output"
}

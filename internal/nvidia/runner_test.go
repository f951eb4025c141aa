package nvidia

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestExecRunner_Output returns stdout of a successful command.
func TestExecRunner_Output(t *testing.T) {
	t.Parallel()

	out, err := NewExecRunner(time.Second).Run(context.Background(), "sh", "-c", "echo 45 C")
	require.NoError(t, err)
	require.Equal(t, "45 C\n", string(out))
}

// TestExecRunner_Failures covers exit codes, ERROR lines on stderr and timeouts.
func TestExecRunner_Failures(t *testing.T) {
	t.Parallel()

	runner := NewExecRunner(time.Second)
	ctx := context.Background()

	_, err := runner.Run(ctx, "sh", "-c", "echo 'cannot open display' >&2; exit 3")
	require.ErrorContains(t, err, "exited with 3")
	require.ErrorContains(t, err, "cannot open display")

	_, err = runner.Run(ctx, "sh", "-c", "echo 'ERROR: Error assigning value 1 to attribute' >&2")
	require.ErrorContains(t, err, "ERROR: Error assigning value 1")

	_, err = NewExecRunner(50*time.Millisecond).Run(ctx, "sh", "-c", "sleep 5")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestExecRunner_Cancelled stops the process when the caller's context is cancelled.
func TestExecRunner_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := NewExecRunner(0).Run(ctx, "sh", "-c", "sleep 5")
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 2*time.Second)
}

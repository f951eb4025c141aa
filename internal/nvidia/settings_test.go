package nvidia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// TestSettings_Commands checks the exact nvidia-settings assignments.
func TestSettings_Commands(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()
	actuator := NewSettings(runner, "nvidia-settings", "")
	ctx := context.Background()

	require.NoError(t, actuator.SetControlMode(ctx, 0, true))
	require.NoError(t, actuator.SetSpeed(ctx, 0, 50))
	require.NoError(t, actuator.SetControlMode(ctx, 1, false))

	require.Equal(t, []string{
		"nvidia-settings -a [gpu:0]/GPUFanControlState=1",
		"nvidia-settings -a [fan-0]/GPUTargetFanSpeed=50",
		"nvidia-settings -a [gpu:1]/GPUFanControlState=0",
	}, runner.calls)
}

// TestSettings_Display passes the X display before the assignment.
func TestSettings_Display(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()

	require.NoError(t, NewSettings(runner, "nvidia-settings", ":0").SetSpeed(context.Background(), 2, 80))
	require.Equal(t, []string{"nvidia-settings --display=:0 -a [fan-2]/GPUTargetFanSpeed=80"}, runner.calls)
}

// TestSettings_Failures wraps command failures and rejects out-of-range speeds.
func TestSettings_Failures(t *testing.T) {
	t.Parallel()

	runner := newScriptedRunner()
	runner.fail("nvidia-settings -a [gpu:0]/GPUFanControlState=1", errTestCommand)

	actuator := NewSettings(runner, "nvidia-settings", "")
	ctx := context.Background()

	err := actuator.SetControlMode(ctx, 0, true)
	require.ErrorIs(t, err, fan.ErrActuation)
	require.ErrorIs(t, err, errTestCommand)

	require.ErrorIs(t, actuator.SetSpeed(ctx, 0, 101), fan.ErrActuation)
	require.ErrorIs(t, actuator.SetSpeed(ctx, 0, -1), fan.ErrActuation)
	require.Len(t, runner.calls, 1)
}

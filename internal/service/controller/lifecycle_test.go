package controller

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/domain/fan/fantest"
)

type recordingReporter struct {
	mu     sync.Mutex
	states []fan.ControlState
}

func (r *recordingReporter) SetControlState(state fan.ControlState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states = append(r.states, state)
}

func (r *recordingReporter) States() []fan.ControlState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]fan.ControlState(nil), r.states...)
}

func threeDevices() *fantest.Telemetry {
	return fantest.NewTelemetry(
		fan.Reading{Name: "A", Temperature: 40, FanSpeed: 30},
		fan.Reading{Name: "B", Temperature: 40, FanSpeed: 30},
		fan.Reading{Name: "C", Temperature: 40, FanSpeed: 30},
	)
}

func TestManagerTakeoverAndRelease(t *testing.T) {
	t.Parallel()

	actuator := fantest.NewActuator()
	reporter := new(recordingReporter)
	manager := NewManager(threeDevices(), actuator, reporter)

	count, err := manager.Enumerate(t.Context())
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.Equal(t, 3, manager.DeviceCount())
	require.Equal(t, fan.Uncontrolled, manager.State())

	require.NoError(t, manager.Takeover(t.Context()))
	require.Equal(t, fan.Controlled, manager.State())

	require.NoError(t, manager.Release(t.Context()))
	require.NoError(t, manager.Release(t.Context()))
	require.Equal(t, fan.Uncontrolled, manager.State())

	for index := range 3 {
		require.Equal(t, 1, actuator.Takeovers(index))
		require.Equal(t, 1, actuator.Releases(index))
	}

	require.Equal(t, []fan.ControlState{fan.Controlled, fan.Uncontrolled}, reporter.States())
}

func TestManagerReleaseAttemptsEveryDevice(t *testing.T) {
	t.Parallel()

	actuator := fantest.NewActuator()
	actuator.FailMode(0, false, fmt.Errorf("%w: no display", fan.ErrActuation))
	actuator.FailMode(1, false, fmt.Errorf("%w: no display", fan.ErrActuation))

	manager := NewManager(threeDevices(), actuator)

	_, err := manager.Enumerate(t.Context())
	require.NoError(t, err)
	require.NoError(t, manager.Takeover(t.Context()))

	err = manager.Release(t.Context())
	require.ErrorIs(t, err, fan.ErrActuation)
	require.ErrorContains(t, err, "release gpu 0")
	require.ErrorContains(t, err, "release gpu 1")

	for index := range 3 {
		require.Equal(t, 1, actuator.Releases(index))
	}

	require.Equal(t, err, manager.Release(t.Context()))
}

func TestManagerTakeoverFailureStopsAtFailedDevice(t *testing.T) {
	t.Parallel()

	actuator := fantest.NewActuator()
	actuator.FailMode(1, true, fmt.Errorf("%w: permission denied", fan.ErrActuation))

	manager := NewManager(threeDevices(), actuator)

	_, err := manager.Enumerate(t.Context())
	require.NoError(t, err)

	err = manager.Takeover(t.Context())
	require.ErrorIs(t, err, fan.ErrActuation)
	require.Equal(t, fan.Uncontrolled, manager.State())
	require.Zero(t, actuator.Takeovers(2))

	require.NoError(t, manager.Release(t.Context()))

	for index := range 3 {
		require.Equal(t, 1, actuator.Releases(index))
	}
}

func TestManagerReleaseWithoutTakeoverDoesNothing(t *testing.T) {
	t.Parallel()

	actuator := fantest.NewActuator()
	manager := NewManager(threeDevices(), actuator)

	_, err := manager.Enumerate(t.Context())
	require.NoError(t, err)
	require.NoError(t, manager.Release(t.Context()))
	require.Empty(t, actuator.ModeCalls())
}

func TestManagerReleaseRunsOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	actuator := fantest.NewActuator()
	manager := NewManager(threeDevices(), actuator)

	_, err := manager.Enumerate(t.Context())
	require.NoError(t, err)
	require.NoError(t, manager.Takeover(t.Context()))

	var wg sync.WaitGroup

	for range 8 {
		wg.Go(func() {
			_ = manager.Release(t.Context())
		})
	}

	wg.Wait()

	for index := range 3 {
		require.Equal(t, 1, actuator.Releases(index))
	}
}

func TestManagerEnumerate(t *testing.T) {
	t.Parallel()

	t.Run("no devices", func(t *testing.T) {
		t.Parallel()

		_, err := NewManager(fantest.NewTelemetry(), fantest.NewActuator()).Enumerate(t.Context())
		require.ErrorIs(t, err, fan.ErrEnumeration)
	})

	t.Run("query failure", func(t *testing.T) {
		t.Parallel()

		telemetry := fantest.NewTelemetry()
		telemetry.CountErr = fmt.Errorf("%w: nvidia-smi not found", fan.ErrEnumeration)

		_, err := NewManager(telemetry, fantest.NewActuator()).Enumerate(t.Context())
		require.ErrorIs(t, err, fan.ErrEnumeration)
	})

	t.Run("takeover before enumeration", func(t *testing.T) {
		t.Parallel()

		actuator := fantest.NewActuator()

		err := NewManager(threeDevices(), actuator).Takeover(t.Context())
		require.ErrorIs(t, err, fan.ErrEnumeration)
		require.Empty(t, actuator.ModeCalls())
	})
}

package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
)

// StateReporter is notified every time the control state of the device set changes.
type StateReporter interface {
	SetControlState(state fan.ControlState)
}

// Manager switches the whole device set between automatic and manual fan control.
type Manager struct {
	telemetry fan.Telemetry
	actuator  fan.Actuator
	reporters []StateReporter

	mu        sync.Mutex
	devices   int
	state     fan.ControlState
	attempted bool
	release   sync.Once
	released  error
}

// NewManager creates a manager for the given backends.
func NewManager(telemetry fan.Telemetry, actuator fan.Actuator, reporters ...StateReporter) *Manager {
	return &Manager{
		telemetry: telemetry,
		actuator:  actuator,
		reporters: reporters,
		state:     fan.Uncontrolled,
	}
}

// Enumerate asks telemetry for the device count and remembers it.
// The count is fixed for the lifetime of the manager.
func (m *Manager) Enumerate(ctx context.Context) (int, error) {
	count, err := m.telemetry.DeviceCount(ctx)
	if err != nil {
		return 0, err
	}

	if count <= 0 {
		return 0, fmt.Errorf("%w: no devices found", fan.ErrEnumeration)
	}

	m.mu.Lock()
	m.devices = count
	m.mu.Unlock()

	logger.InfoKV(ctx, "Devices enumerated", "count", count)

	return count, nil
}

// DeviceCount returns the number of devices found by Enumerate.
func (m *Manager) DeviceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.devices
}

// State returns the current control state of the device set.
func (m *Manager) State() fan.ControlState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Takeover enables manual fan control on every enumerated device, in index order.
// It stops at the first failure; Release must still be called afterwards
// because earlier devices are already under manual control.
func (m *Manager) Takeover(ctx context.Context) error {
	m.mu.Lock()
	count := m.devices
	m.attempted = true
	m.mu.Unlock()

	if count == 0 {
		return fmt.Errorf("%w: takeover before enumeration", fan.ErrEnumeration)
	}

	logger.InfoKV(ctx, "Taking over fan control", "devices", count)

	for index := range count {
		if err := m.actuator.SetControlMode(ctx, index, true); err != nil {
			return fmt.Errorf("take over gpu %d: %w", index, err)
		}

		logger.DebugKV(ctx, "Manual fan control enabled", "gpu", index)
	}

	m.setState(fan.Controlled)

	return nil
}

// Release hands every enumerated device back to automatic fan control.
// Only the first call does any work; later calls return the first result.
// Individual failures do not stop the sweep and are joined into the result.
func (m *Manager) Release(ctx context.Context) error {
	m.release.Do(func() {
		m.mu.Lock()
		count, attempted := m.devices, m.attempted
		m.mu.Unlock()

		if !attempted {
			return
		}

		logger.InfoKV(ctx, "Restoring automatic fan control", "devices", count)

		m.released = ReleaseDevices(ctx, m.actuator, count)
		m.setState(fan.Uncontrolled)
	})

	return m.released
}

func (m *Manager) setState(state fan.ControlState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	for _, reporter := range m.reporters {
		reporter.SetControlState(state)
	}
}

// ReleaseDevices disables manual fan control on devices [0, count).
// Every device is attempted; failures are logged and joined.
func ReleaseDevices(ctx context.Context, actuator fan.Actuator, count int) error {
	var errs []error

	for index := range count {
		if err := actuator.SetControlMode(ctx, index, false); err != nil {
			logger.WarnKV(ctx, "Failed to restore automatic fan control", "gpu", index, "error", err)
			errs = append(errs, fmt.Errorf("release gpu %d: %w", index, err))

			continue
		}

		logger.DebugKV(ctx, "Automatic fan control restored", "gpu", index)
	}

	return errors.Join(errs...)
}

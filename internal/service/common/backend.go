//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"io"

	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/nvidia"
)

// Backend bundles the hardware boundary selected by the settings.
type Backend struct {
	// Telemetry reads device state.
	Telemetry fan.Telemetry
	// Actuator sends fan commands.
	Actuator fan.Actuator
	// closers are released by Close.
	closers []io.Closer
}

// NewBackend builds telemetry and actuation from the settings.
func NewBackend(cfg *config.Config) (*Backend, error) {
	runner := nvidia.NewExecRunner(cfg.CommandTimeout)

	backend := &Backend{
		Telemetry: nvidia.NewSMI(runner, cfg.NvidiaSMI),
		Actuator:  nvidia.NewSettings(runner, cfg.NvidiaSettings, cfg.Display),
	}

	if cfg.Telemetry == config.TelemetryNVML {
		lib, err := nvidia.OpenNVML()
		if err != nil {
			return nil, err
		}

		backend.Telemetry = lib
		backend.closers = append(backend.closers, lib)
	}

	return backend, nil
}

// Close releases library handles held by the backend.
func (b *Backend) Close() error {
	var firstErr error

	for _, c := range b.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

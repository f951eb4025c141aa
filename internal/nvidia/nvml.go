//go:build nvml

package nvidia

import (
	"context"
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// NVML reads telemetry through the NVIDIA Management Library.
type NVML struct{}

// TelemetryBackends lists the telemetry backends compiled into this build.
func TelemetryBackends() []string {
	return []string{"smi", "nvml"}
}

// OpenNVML initialises the library. Close must be called when done.
func OpenNVML() (*NVML, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml init: %s: %w", nvml.ErrorString(ret), fan.ErrEnumeration)
	}

	return &NVML{}, nil
}

// Close shuts the library down.
func (n *NVML) Close() error {
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("nvml shutdown: %s", nvml.ErrorString(ret))
	}

	return nil
}

// DeviceCount implements fan.Telemetry.
func (n *NVML) DeviceCount(context.Context) (int, error) {
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return 0, fmt.Errorf("nvml device count: %s: %w", nvml.ErrorString(ret), fan.ErrEnumeration)
	}

	return count, nil
}

// Read implements fan.Telemetry.
func (n *NVML) Read(_ context.Context, index int) (*fan.Reading, error) {
	device, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		return nil, n.queryError(index, "handle", ret)
	}

	name, ret := device.GetName()
	if ret != nvml.SUCCESS {
		return nil, n.queryError(index, "name", ret)
	}

	temperature, ret := device.GetTemperature(nvml.TEMPERATURE_GPU)
	if ret != nvml.SUCCESS {
		return nil, n.queryError(index, "temperature", ret)
	}

	speed, ret := device.GetFanSpeed()
	if ret != nvml.SUCCESS {
		return nil, n.queryError(index, "fan speed", ret)
	}

	return &fan.Reading{
		Index:       index,
		Name:        name,
		Temperature: int(temperature),
		FanSpeed:    int(speed),
	}, nil
}

func (n *NVML) queryError(index int, what string, ret nvml.Return) error {
	return fmt.Errorf("gpu %d: nvml %s: %s: %w", index, what, nvml.ErrorString(ret), fan.ErrQuery)
}

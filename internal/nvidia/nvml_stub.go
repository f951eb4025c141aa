//go:build !nvml

package nvidia

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// errNoNVML is returned when the binary was built without the nvml tag.
var errNoNVML = errors.New("built without nvml support, rebuild with -tags nvml")

// NVML is unavailable in this build.
type NVML struct{}

// TelemetryBackends lists the telemetry backends compiled into this build.
func TelemetryBackends() []string {
	return []string{"smi"}
}

// OpenNVML always fails in builds without the nvml tag.
func OpenNVML() (*NVML, error) {
	return nil, fmt.Errorf("%w: %w", errNoNVML, fan.ErrConfig)
}

// Close implements io.Closer.
func (n *NVML) Close() error { return nil }

// DeviceCount implements fan.Telemetry.
func (n *NVML) DeviceCount(context.Context) (int, error) {
	return 0, fmt.Errorf("%w: %w", errNoNVML, fan.ErrEnumeration)
}

// Read implements fan.Telemetry.
func (n *NVML) Read(_ context.Context, index int) (*fan.Reading, error) {
	return nil, fmt.Errorf("gpu %d: %w: %w", index, errNoNVML, fan.ErrQuery)
}

package fan

import "context"

// MaxSpeed is the highest fan speed percentage.
const MaxSpeed = 100

// Reading is a single telemetry sample of one device.
type Reading struct {
	// Index is the zero-based device index, stable for the process lifetime.
	Index int
	// Name is the product name, informational only.
	Name string
	// Temperature is the GPU core temperature in degrees.
	Temperature int
	// FanSpeed is the currently reported fan speed in percent.
	FanSpeed int
}

// ControlState tells whether fan speed is driven manually or by the vendor policy.
type ControlState int

const (
	// Uncontrolled means the vendor driver runs its automatic fan policy.
	Uncontrolled ControlState = iota
	// Controlled means fan speed is set manually by this process.
	Controlled
)

// String implements fmt.Stringer.
func (s ControlState) String() string {
	switch s {
	case Uncontrolled:
		return "uncontrolled"
	case Controlled:
		return "controlled"
	default:
		return "unknown"
	}
}

// Telemetry queries per-device hardware state.
// Every call performs a fresh external query.
type Telemetry interface {
	// DeviceCount returns the number of discoverable devices.
	DeviceCount(ctx context.Context) (int, error)
	// Read returns the current reading of the device at index.
	Read(ctx context.Context, index int) (*Reading, error)
}

// Actuator issues fan control commands to a device.
type Actuator interface {
	// SetControlMode enables or disables manual fan control.
	SetControlMode(ctx context.Context, index int, enabled bool) error
	// SetSpeed sets the target fan speed in percent.
	SetSpeed(ctx context.Context, index, percent int) error
}

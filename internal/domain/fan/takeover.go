package fan

import "time"

// Takeover records which process put how many devices under manual control.
type Takeover struct {
	// Timestamp is when control was taken over.
	Timestamp time.Time
	// PID is the process that holds control.
	PID int
	// Hostname is the machine the process runs on.
	Hostname string
	// DeviceCount is the number of devices switched to manual control.
	DeviceCount int
}

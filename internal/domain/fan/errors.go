package fan

import "errors"

var (
	// ErrEnumeration is returned when the number of devices cannot be determined.
	ErrEnumeration = errors.New("device enumeration failed")
	// ErrQuery is returned when a device telemetry query fails or is malformed.
	ErrQuery = errors.New("device query failed")
	// ErrActuation is returned when a fan control command fails.
	ErrActuation = errors.New("fan actuation failed")
	// ErrUnknownTemperature is returned when the speed table has no entry for a temperature.
	ErrUnknownTemperature = errors.New("unknown temperature")
	// ErrConfig is returned when configuration is missing or cannot be parsed.
	ErrConfig = errors.New("invalid configuration")
)

// Package fan contains core domain types for GPU fan control.
//
// It defines Reading (one telemetry sample of a device), SpeedTable (the
// operator's exact-match temperature to fan speed mapping), ControlState and
// the error taxonomy shared by telemetry, actuation and the controller.
// Telemetry and Actuator describe the hardware boundary the controller
// depends on.
package fan

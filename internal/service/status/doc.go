// Package status renders a one-shot, read-only view of every device.
// It never changes the fan control mode.
package status

// Package controller runs the closed fan control loop.
//
// Manager owns the switch between vendor-automatic and manual fan control for
// the whole device set: it takes every device over at startup and hands every
// device back exactly once on the way out, whatever the exit path. Loop polls
// telemetry on a fixed cadence and sets a new fan speed only when the speed
// table asks for something other than what the device reports.
package controller

// Package common holds helpers shared by several services.
//
// It builds the telemetry and actuation backends selected in the settings,
// checks the process table for a concurrently running controller and wraps a
// gRPC health client used to probe a running controller.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

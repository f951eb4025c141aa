// Package probe checks the health endpoint of a running controller.
package probe

// Package release hands fan control back to the driver after a controller
// died without doing it itself, for example after kill -9 or a power loss.
package release

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"time"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// NewTakeover describes the current process taking control of count devices.
func NewTakeover(count int) (*fan.Takeover, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	return &fan.Takeover{
		Timestamp:   time.Now(),
		PID:         os.Getpid(),
		Hostname:    hostname,
		DeviceCount: count,
	}, nil
}

package integration

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/domain/fan/fantest"
)

// unusedPID is above the Linux pid_max ceiling, so no process can own it.
const unusedPID = 1<<22 + 1

// reservePort finds a free loopback port for a test listener.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// newSettings writes a speed table and returns settings pointing at it.
func newSettings(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	tablePath := filepath.Join(dir, config.DefaultSpeedTableFilename)
	require.NoError(t, os.WriteFile(tablePath, []byte(`{"40": 30, "60": 50, "80": 80}`), 0o600))

	cfg := config.Default()
	cfg.SpeedTable = tablePath
	cfg.StateFile = filepath.Join(dir, config.DefaultStateFilename)
	cfg.PollInterval = 10 * time.Millisecond

	return cfg
}

func twoDevices() *fantest.Telemetry {
	return fantest.NewTelemetry(
		fan.Reading{Name: "GeForce RTX 3090", Temperature: 60, FanSpeed: 40},
		fan.Reading{Name: "GeForce RTX 3080", Temperature: 80, FanSpeed: 80},
	)
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/nvidia"
)

// TestNewBackend_Defaults wires nvidia-smi telemetry and nvidia-settings actuation.
func TestNewBackend_Defaults(t *testing.T) {
	t.Parallel()

	backend, err := NewBackend(config.Default())
	require.NoError(t, err)

	defer func() {
		_ = backend.Close()
	}()

	require.IsType(t, &nvidia.SMI{}, backend.Telemetry)
	require.IsType(t, &nvidia.Settings{}, backend.Actuator)
}

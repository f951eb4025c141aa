//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNewTakeover ensures the marker names this process and host.
func TestNewTakeover(t *testing.T) {
	t.Parallel()

	takeover, err := NewTakeover(3)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), takeover.PID)
	require.Equal(t, 3, takeover.DeviceCount)
	require.NotEmpty(t, takeover.Hostname)
	require.False(t, takeover.Timestamp.IsZero())
}

package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

func TestReloadablePolicySwapsTable(t *testing.T) {
	t.Parallel()

	policy := NewReloadablePolicy(newTable(t))

	target, err := policy.Resolve(60)
	require.NoError(t, err)
	require.Equal(t, 50, target)

	replacement, err := fan.NewSpeedTable(map[int]int{60: 70})
	require.NoError(t, err)

	policy.Store(replacement)

	target, err = policy.Resolve(60)
	require.NoError(t, err)
	require.Equal(t, 70, target)

	_, err = policy.Resolve(40)
	require.ErrorIs(t, err, fan.ErrUnknownTemperature)
}

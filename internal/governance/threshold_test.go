package governance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeThresholdZeroDenominator(t *testing.T) {
	ratio, err := ComputeThreshold(500, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), ratio)
}

func TestComputeThresholdExactRatio(t *testing.T) {
	// 700 / 1000 = 70% => 700_000_000 at scale 1e9.
	ratio, err := ComputeThreshold(700, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint32(700_000_000), ratio)
}

func TestComputeThresholdOverflow(t *testing.T) {
	_, err := ComputeThreshold(math.MaxUint64, 1)
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, CodeArithmeticOverflow, gerr.Code)
}

func TestMeetsThresholdIdentity(t *testing.T) {
	// Acceptance fires iff stake_for * 1e9 >= threshold * total_stake.
	const total = 1_000
	const threshold = 600_000_000 // 60%
	ok, err := MeetsThreshold(600, total, threshold)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = MeetsThreshold(599, total, threshold)
	require.NoError(t, err)
	require.False(t, ok)
}

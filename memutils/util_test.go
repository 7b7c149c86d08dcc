package memutils_test

import (
	"testing"

	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/stretchr/testify/require"
)

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(1, "alignment"))
	require.NoError(t, memutils.CheckPow2(uint32(256), "alignment"))

	for _, value := range []int{0, -4, 3, 96} {
		err := memutils.CheckPow2(value, "alignment")
		require.ErrorIs(t, err, memutils.ErrPowerOfTwo)
		require.ErrorIs(t, err, memutils.ErrInvalidUsage)
	}
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, memutils.AlignUp(0, 16))
	require.Equal(t, 16, memutils.AlignUp(1, 16))
	require.Equal(t, 32, memutils.AlignUp(32, 16))
	require.Equal(t, 13, memutils.AlignUp(13, 1))
}

func TestMaxMipLevels(t *testing.T) {
	require.Equal(t, 1, memutils.MaxMipLevels(1))
	require.Equal(t, 3, memutils.MaxMipLevels(4))
	require.Equal(t, 3, memutils.MaxMipLevels(7))
	require.Equal(t, 11, memutils.MaxMipLevels(1024))
}

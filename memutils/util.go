package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// CheckPow2 returns an error marked as ErrInvalidUsage if number is not a power of two. Zero
// and negative values are rejected as well.
func CheckPow2[T constraints.Integer](number T, name string) error {
	if number <= 0 || number&(number-1) != 0 {
		return WithClass(cerrors.Wrapf(ErrPowerOfTwo, "%s is %d", name, number), ErrInvalidUsage)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two
func AlignUp[T constraints.Integer](value T, alignment T) T {
	return (value + alignment - 1) & ^(alignment - 1)
}

// MaxMipLevels returns the length of a full mip chain for an image whose largest dimension is
// extent
func MaxMipLevels(extent int) int {
	levels := 1
	for extent > 1 {
		extent >>= 1
		levels++
	}
	return levels
}

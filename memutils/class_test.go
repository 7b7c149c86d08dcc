package memutils_test

import (
	"errors"
	"testing"

	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/stretchr/testify/require"
)

var errDeviceLost = errors.New("device lost")

func TestWithClassIsVisibleToBothLibraries(t *testing.T) {
	err := memutils.WithClass(cerrors.Wrap(errDeviceLost, "submitting"), memutils.ErrDeviceFailure)

	require.True(t, errors.Is(err, memutils.ErrDeviceFailure))
	require.True(t, cerrors.Is(err, memutils.ErrDeviceFailure))
	require.ErrorIs(t, err, errDeviceLost)
	require.NotErrorIs(t, err, memutils.ErrInvalidUsage)
	require.EqualError(t, err, "submitting: device lost")

	wrapped := cerrors.Wrap(err, "uploading")
	require.ErrorIs(t, wrapped, memutils.ErrDeviceFailure)
	require.ErrorIs(t, wrapped, errDeviceLost)
}

func TestWithClassNil(t *testing.T) {
	require.NoError(t, memutils.WithClass(nil, memutils.ErrInvalidUsage))
}

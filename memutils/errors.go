package memutils

import "github.com/pkg/errors"

// ErrResourceExhausted is the error class for allocations that no existing or new chunk can satisfy.
// The caller may free other resources and retry.
var ErrResourceExhausted error = errors.New("device memory exhausted")

// ErrInvalidUsage is the error class for violations of the caller contract: zero-size allocations,
// releasing unknown or already released blocks, mapping resources without CPU access, and the like
var ErrInvalidUsage error = errors.New("invalid usage")

// ErrDeviceFailure is the error class for failures reported by the underlying device when creating
// memory, buffers or command buffers, or when submitting work
var ErrDeviceFailure error = errors.New("device failure")

// ErrPowerOfTwo is the error returned from CheckPow2 if the number being tested is not a power of two
var ErrPowerOfTwo error = errors.New("number must be a power of two")

package hal

import "github.com/pkg/errors"

// ErrOutOfDeviceMemory is returned by Device.AllocateMemory when the heap backing the requested
// memory type cannot hold the allocation
var ErrOutOfDeviceMemory error = errors.New("out of device memory")

// ErrMemoryMapFailed is returned by Memory.Map when the memory cannot be mapped for host access
var ErrMemoryMapFailed error = errors.New("memory map failed")

package vulkan

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/vkngwrapper/core/v2/core1_0"
)

type memory struct {
	device          *Device
	memory          core1_0.DeviceMemory
	size            int
	memoryTypeIndex int
	mapped          bool
}

var _ hal.Memory = &memory{}

func asMemory(device *Device, mem hal.Memory) (*memory, error) {
	vulkanMemory, ok := mem.(*memory)
	if !ok || vulkanMemory.device != device {
		return nil, cerrors.New("memory was not allocated by this device")
	}

	return vulkanMemory, nil
}

func (m *memory) Size() int {
	return m.size
}

func (m *memory) MemoryTypeIndex() int {
	return m.memoryTypeIndex
}

func (m *memory) Map(offset int, size int) ([]byte, error) {
	if m.mapped {
		return nil, memutils.WithClass(cerrors.New("memory is already mapped"), hal.ErrMemoryMapFailed)
	}

	if offset < 0 || size <= 0 || offset+size > m.size {
		return nil, memutils.WithClass(cerrors.Newf("cannot map %d bytes at offset %d of a %d byte allocation", size, offset, m.size), hal.ErrMemoryMapFailed)
	}

	ptr, _, err := m.memory.Map(offset, size, 0)
	if err != nil {
		return nil, memutils.WithClass(cerrors.Wrap(err, "mapping device memory"), hal.ErrMemoryMapFailed)
	}

	m.mapped = true
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (m *memory) Unmap() {
	if !m.mapped {
		return
	}

	m.memory.Unmap()
	m.mapped = false
}

func (m *memory) Free() {
	if m.memory == nil {
		return
	}

	m.Unmap()
	m.memory.Free(m.device.allocationCallbacks)
	m.memory = nil
}

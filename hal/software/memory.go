package software

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
)

type memory struct {
	device    *Device
	id        uint64
	typeIndex int
	heapIndex int
	data      []byte
	mapped    bool
	freed     bool
}

var _ hal.Memory = &memory{}

func (m *memory) Size() int {
	return len(m.data)
}

func (m *memory) MemoryTypeIndex() int {
	return m.typeIndex
}

func (m *memory) Map(offset int, size int) ([]byte, error) {
	if m.freed {
		return nil, cerrors.Wrap(hal.ErrMemoryMapFailed, "memory has been freed")
	}

	if m.mapped {
		return nil, cerrors.Wrap(hal.ErrMemoryMapFailed, "memory is already mapped")
	}

	flags := m.device.options.MemoryTypes[m.typeIndex].PropertyFlags
	if flags&hal.MemoryPropertyHostVisible == 0 {
		return nil, cerrors.Wrapf(hal.ErrMemoryMapFailed, "memory type %d (%s) is not host visible", m.typeIndex, flags)
	}

	if offset < 0 || size <= 0 || offset+size > len(m.data) {
		return nil, cerrors.Wrapf(hal.ErrMemoryMapFailed, "range [%d, %d) is outside of the %d bytes of memory", offset, offset+size, len(m.data))
	}

	m.mapped = true
	return m.data[offset : offset+size : offset+size], nil
}

func (m *memory) Unmap() {
	m.mapped = false
}

func (m *memory) Free() {
	if m.freed {
		return
	}

	m.freed = true
	m.mapped = false
	m.device.releaseHeap(m.heapIndex, len(m.data))
	m.device.unregister(m.id)
}

func asMemory(device *Device, mem hal.Memory) (*memory, error) {
	softwareMemory, ok := mem.(*memory)
	if !ok || softwareMemory.device != device {
		return nil, cerrors.New("memory was not allocated by this device")
	}

	if softwareMemory.freed {
		return nil, cerrors.New("memory has been freed")
	}

	return softwareMemory, nil
}

func bindCheck(device *Device, mem hal.Memory, offset int, requirements hal.MemoryRequirements) (*memory, error) {
	softwareMemory, err := asMemory(device, mem)
	if err != nil {
		return nil, err
	}

	if requirements.MemoryTypeBits&(1<<softwareMemory.typeIndex) == 0 {
		return nil, cerrors.Newf("memory type %d is not allowed by memory type bits %#x", softwareMemory.typeIndex, requirements.MemoryTypeBits)
	}

	if offset < 0 || offset%requirements.Alignment != 0 {
		return nil, cerrors.Newf("offset %d does not satisfy the required alignment of %d", offset, requirements.Alignment)
	}

	if offset+requirements.Size > len(softwareMemory.data) {
		return nil, cerrors.Newf("%d bytes at offset %d do not fit in %d bytes of memory", requirements.Size, offset, len(softwareMemory.data))
	}

	return softwareMemory, nil
}

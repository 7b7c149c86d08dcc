package software

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
)

type buffer struct {
	device    *Device
	id        uint64
	desc      hal.BufferDescriptor
	memory    *memory
	offset    int
	destroyed bool
}

var _ hal.Buffer = &buffer{}

func (b *buffer) Size() int {
	return b.desc.Size
}

func (b *buffer) Usage() hal.BufferUsageFlags {
	return b.desc.Usage
}

func (b *buffer) MemoryRequirements() hal.MemoryRequirements {
	return hal.MemoryRequirements{
		Size:           memutils.AlignUp(b.desc.Size, 4),
		Alignment:      b.device.options.BufferAlignment,
		MemoryTypeBits: b.device.allMemoryTypeBits(),
	}
}

func (b *buffer) BindMemory(mem hal.Memory, offset int) error {
	if b.destroyed {
		return cerrors.New("buffer has been destroyed")
	}

	if b.memory != nil {
		return cerrors.New("buffer is already bound to memory")
	}

	softwareMemory, err := bindCheck(b.device, mem, offset, b.MemoryRequirements())
	if err != nil {
		return err
	}

	b.memory = softwareMemory
	b.offset = offset
	return nil
}

func (b *buffer) Destroy() {
	if b.destroyed {
		return
	}

	b.destroyed = true
	b.device.unregister(b.id)
}

// contents returns the bytes backing the buffer, failing if the buffer or its memory is gone
func (b *buffer) contents() ([]byte, error) {
	if b.destroyed {
		return nil, cerrors.New("buffer has been destroyed")
	}

	if b.memory == nil {
		return nil, cerrors.New("buffer is not bound to memory")
	}

	if b.memory.freed {
		return nil, cerrors.New("buffer memory has been freed")
	}

	return b.memory.data[b.offset : b.offset+b.desc.Size], nil
}

func asBuffer(device *Device, buf hal.Buffer) (*buffer, error) {
	softwareBuffer, ok := buf.(*buffer)
	if !ok || softwareBuffer.device != device {
		return nil, cerrors.New("buffer was not created by this device")
	}

	return softwareBuffer, nil
}

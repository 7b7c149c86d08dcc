package vulkan

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
)

type buffer struct {
	device       *Device
	buffer       core1_0.Buffer
	desc         hal.BufferDescriptor
	requirements hal.MemoryRequirements
}

var _ hal.Buffer = &buffer{}

func asBuffer(device *Device, buf hal.Buffer) (*buffer, error) {
	vulkanBuffer, ok := buf.(*buffer)
	if !ok || vulkanBuffer.device != device || vulkanBuffer.buffer == nil {
		return nil, cerrors.New("buffer was not created by this device or has been destroyed")
	}

	return vulkanBuffer, nil
}

func (b *buffer) Size() int {
	return b.desc.Size
}

func (b *buffer) Usage() hal.BufferUsageFlags {
	return b.desc.Usage
}

func (b *buffer) MemoryRequirements() hal.MemoryRequirements {
	return b.requirements
}

func (b *buffer) BindMemory(mem hal.Memory, offset int) error {
	vulkanMemory, err := asMemory(b.device, mem)
	if err != nil {
		return err
	}

	if b.device.bindMemory2 != nil {
		_, err = b.device.bindMemory2.BindBufferMemory2([]core1_1.BindBufferMemoryInfo{
			{
				Buffer:       b.buffer,
				Memory:       vulkanMemory.memory,
				MemoryOffset: offset,
			},
		})
	} else {
		_, err = b.buffer.BindBufferMemory(vulkanMemory.memory, offset)
	}

	return cerrors.Wrapf(err, "binding buffer to offset %d", offset)
}

func (b *buffer) Destroy() {
	if b.buffer == nil {
		return
	}

	b.buffer.Destroy(b.device.allocationCallbacks)
	b.buffer = nil
}

type image struct {
	device       *Device
	image        core1_0.Image
	desc         hal.ImageDescriptor
	requirements hal.MemoryRequirements
}

var _ hal.Image = &image{}

func asImage(device *Device, img hal.Image) (*image, error) {
	vulkanImage, ok := img.(*image)
	if !ok || vulkanImage.device != device || vulkanImage.image == nil {
		return nil, cerrors.New("image was not created by this device or has been destroyed")
	}

	return vulkanImage, nil
}

func (i *image) Descriptor() hal.ImageDescriptor {
	return i.desc
}

func (i *image) MemoryRequirements() hal.MemoryRequirements {
	return i.requirements
}

func (i *image) BindMemory(mem hal.Memory, offset int) error {
	vulkanMemory, err := asMemory(i.device, mem)
	if err != nil {
		return err
	}

	if i.device.bindMemory2 != nil {
		_, err = i.device.bindMemory2.BindImageMemory2([]core1_1.BindImageMemoryInfo{
			{
				Image:        i.image,
				Memory:       vulkanMemory.memory,
				MemoryOffset: uint64(offset),
			},
		})
	} else {
		_, err = i.image.BindImageMemory(vulkanMemory.memory, offset)
	}

	return cerrors.Wrapf(err, "binding image to offset %d", offset)
}

func (i *image) Destroy() {
	if i.image == nil {
		return
	}

	i.image.Destroy(i.device.allocationCallbacks)
	i.image = nil
}

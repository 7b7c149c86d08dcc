package vulkan

import (
	"context"
	"log/slog"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/extensions/v2/khr_bind_memory2"
	khr_bind_memory2_shim "github.com/vkngwrapper/extensions/v2/khr_bind_memory2/shim"
)

// Device adapts a vulkan logical device to hal.Device. Command buffers come from a transient pool
// on a single queue family, and are submitted to the first queue of that family.
type Device struct {
	logger              *slog.Logger
	device              core1_0.Device
	allocationCallbacks *driver.AllocationCallbacks

	queueFamilyIndex int
	queue            *queue
	commandPool      core1_0.CommandPool
	memoryProperties hal.MemoryProperties

	// bindMemory2 is nil when neither core 1.1 nor khr_bind_memory2 is active
	bindMemory2 khr_bind_memory2_shim.Shim
}

var _ hal.Device = &Device{}

type CreateOptions struct {
	// QueueFamilyIndex is the family of the queue transfers are submitted to. It must support
	// graphics or transfer operations, and blits require graphics.
	QueueFamilyIndex    int
	AllocationCallbacks *driver.AllocationCallbacks
}

func New(logger *slog.Logger, physicalDevice core1_0.PhysicalDevice, device core1_0.Device, options CreateOptions) (*Device, error) {
	if logger == nil {
		return nil, cerrors.New("cannot create a vulkan device without a logger")
	}

	if physicalDevice == nil || device == nil {
		return nil, cerrors.New("a vulkan device requires a physical device and a logical device")
	}

	d := &Device{
		logger:              logger,
		device:              device,
		allocationCallbacks: options.AllocationCallbacks,
		queueFamilyIndex:    options.QueueFamilyIndex,
		memoryProperties:    convertMemoryProperties(physicalDevice.MemoryProperties()),
	}

	device11 := core1_1.PromoteDevice(device)
	if device11 != nil {
		d.bindMemory2 = device11
	} else if device.IsDeviceExtensionActive(khr_bind_memory2.ExtensionName) {
		extension := khr_bind_memory2.CreateExtensionFromDevice(device)
		d.bindMemory2 = khr_bind_memory2_shim.NewShim(device, extension)
	}

	var err error
	d.commandPool, _, err = device.CreateCommandPool(d.allocationCallbacks, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: options.QueueFamilyIndex,
	})
	if err != nil {
		return nil, cerrors.Wrap(err, "creating transient command pool")
	}

	d.queue = &queue{
		device: d,
		queue:  device.GetQueue(options.QueueFamilyIndex, 0),
	}

	logger.LogAttrs(context.Background(), slog.LevelDebug, "vulkan device ready",
		slog.Int("queueFamilyIndex", options.QueueFamilyIndex),
		slog.Int("memoryTypes", len(d.memoryProperties.MemoryTypes)),
		slog.Bool("bindMemory2", d.bindMemory2 != nil))

	return d, nil
}

// Destroy releases the transient command pool. Every command buffer allocated from the device
// must have been freed first.
func (d *Device) Destroy() {
	if d.commandPool != nil {
		d.commandPool.Destroy(d.allocationCallbacks)
		d.commandPool = nil
	}
}

func (d *Device) MemoryProperties() hal.MemoryProperties {
	return d.memoryProperties
}

func (d *Device) AllocateMemory(memoryTypeIndex int, size int) (hal.Memory, error) {
	d.logger.LogAttrs(context.Background(), slog.LevelDebug, "vkAllocateMemory",
		slog.Int("memoryTypeIndex", memoryTypeIndex),
		slog.String("size", humanize.IBytes(uint64(size))))

	mem, res, err := d.device.AllocateMemory(d.allocationCallbacks, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return nil, wrapResult(res, err, "allocating %d bytes of memory type %d", size, memoryTypeIndex)
	}

	return &memory{
		device:          d,
		memory:          mem,
		size:            size,
		memoryTypeIndex: memoryTypeIndex,
	}, nil
}

func (d *Device) CreateBuffer(desc hal.BufferDescriptor) (hal.Buffer, error) {
	buf, res, err := d.device.CreateBuffer(d.allocationCallbacks, core1_0.BufferCreateInfo{
		Size:        desc.Size,
		Usage:       convertFlags(desc.Usage, bufferUsagePairs),
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, wrapResult(res, err, "creating buffer of %d bytes", desc.Size)
	}

	return &buffer{
		device:       d,
		buffer:       buf,
		desc:         desc,
		requirements: convertMemoryRequirements(buf.MemoryRequirements()),
	}, nil
}

func (d *Device) CreateImage(desc hal.ImageDescriptor) (hal.Image, error) {
	format, ok := formats[desc.Format]
	if !ok {
		return nil, cerrors.Newf("format %s has no vulkan equivalent", desc.Format)
	}

	imageType, ok := imageTypes[desc.Type]
	if !ok {
		return nil, cerrors.Newf("unknown image type %d", desc.Type)
	}

	var flags core1_0.ImageCreateFlags
	if desc.CubeCompatible {
		flags |= core1_0.ImageCreateCubeCompatible
	}

	img, res, err := d.device.CreateImage(d.allocationCallbacks, core1_0.ImageCreateInfo{
		Flags:         flags,
		ImageType:     imageType,
		Format:        format,
		Extent:        convertExtent(desc.Extent),
		MipLevels:     desc.MipLevels,
		ArrayLayers:   desc.ArrayLayers,
		Samples:       core1_0.Samples1,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         convertFlags(desc.Usage, imageUsagePairs),
		SharingMode:   core1_0.SharingModeExclusive,
		InitialLayout: core1_0.ImageLayoutUndefined,
	})
	if err != nil {
		return nil, wrapResult(res, err, "creating %s image %dx%dx%d", desc.Format, desc.Extent.Width, desc.Extent.Height, desc.Extent.Depth)
	}

	return &image{
		device:       d,
		image:        img,
		desc:         desc,
		requirements: convertMemoryRequirements(img.MemoryRequirements()),
	}, nil
}

func (d *Device) AllocateCommandBuffer() (hal.CommandBuffer, error) {
	commandBuffers, res, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return nil, wrapResult(res, err, "allocating a command buffer")
	}

	return &commandBuffer{
		device:        d,
		commandBuffer: commandBuffers[0],
	}, nil
}

func (d *Device) Queue() hal.Queue {
	return d.queue
}

// wrapResult marks out-of-memory results so that callers can recognize them
func wrapResult(res common.VkResult, err error, format string, args ...any) error {
	err = cerrors.Wrapf(err, format, args...)
	if res == core1_0.VKErrorOutOfDeviceMemory || res == core1_0.VKErrorOutOfHostMemory {
		err = memutils.WithClass(err, hal.ErrOutOfDeviceMemory)
	}
	return err
}

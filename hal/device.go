package hal

//go:generate mockgen -source device.go -destination ./mocks/mocks.go -package mocks

// Device is the subset of a graphics device that the memory manager and upload pipeline need.
// Implementations live in the vulkan and software subpackages.
type Device interface {
	// MemoryProperties returns the memory types and heaps of the device. The result must not
	// change over the lifetime of the device.
	MemoryProperties() MemoryProperties
	// AllocateMemory allocates size bytes of memory type memoryTypeIndex. It returns an error
	// matching ErrOutOfDeviceMemory when the heap is exhausted.
	AllocateMemory(memoryTypeIndex int, size int) (Memory, error)
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	CreateImage(desc ImageDescriptor) (Image, error)
	// AllocateCommandBuffer allocates a primary command buffer from a transient pool on the
	// device's graphics queue family
	AllocateCommandBuffer() (CommandBuffer, error)
	// Queue returns the graphics queue that command buffers are submitted to
	Queue() Queue
}

// Memory is a single allocation of device memory
type Memory interface {
	Size() int
	MemoryTypeIndex() int
	// Map maps size bytes at offset for host access. A Memory may only be mapped once at a time.
	Map(offset int, size int) ([]byte, error)
	Unmap()
	Free()
}

type Buffer interface {
	Size() int
	Usage() BufferUsageFlags
	MemoryRequirements() MemoryRequirements
	BindMemory(memory Memory, offset int) error
	Destroy()
}

type Image interface {
	Descriptor() ImageDescriptor
	MemoryRequirements() MemoryRequirements
	BindMemory(memory Memory, offset int) error
	Destroy()
}

// CommandBuffer records transfer work for later submission. Recording methods may validate their
// arguments and return an error; a command buffer that failed to record must not be submitted.
type CommandBuffer interface {
	// Begin starts recording for a single submission
	Begin() error
	End() error
	CopyBuffer(src Buffer, dst Buffer, regions ...BufferCopy) error
	CopyBufferToImage(src Buffer, dst Image, dstLayout ImageLayout, regions ...BufferImageCopy) error
	PipelineBarrier(srcStages PipelineStageFlags, dstStages PipelineStageFlags, barriers ...ImageBarrier) error
	BlitImage(src Image, srcLayout ImageLayout, dst Image, dstLayout ImageLayout, filter Filter, regions ...ImageBlit) error
	// Free returns the command buffer to its pool
	Free()
}

type Queue interface {
	Submit(commandBuffers ...CommandBuffer) error
	// WaitIdle blocks until all work submitted to the queue has completed
	WaitIdle() error
}

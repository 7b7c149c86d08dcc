package hal

import "github.com/vkngwrapper/core/v2/common"

// MemoryPropertyFlags describes what a memory type can do. The bit values match the Vulkan
// VkMemoryPropertyFlagBits they are named after.
type MemoryPropertyFlags int32

var memoryPropertyFlagsMapping = common.NewFlagStringMapping[MemoryPropertyFlags]()

func (f MemoryPropertyFlags) Register(str string) {
	memoryPropertyFlagsMapping.Register(f, str)
}
func (f MemoryPropertyFlags) String() string {
	return memoryPropertyFlagsMapping.FlagsToString(f)
}

const (
	// MemoryPropertyDeviceLocal memory is the most efficient for device access
	MemoryPropertyDeviceLocal MemoryPropertyFlags = 1 << iota
	// MemoryPropertyHostVisible memory can be mapped for host access
	MemoryPropertyHostVisible
	// MemoryPropertyHostCoherent memory does not need explicit flushes or invalidations
	MemoryPropertyHostCoherent
	// MemoryPropertyHostCached memory is cached on the host
	MemoryPropertyHostCached
	// MemoryPropertyLazilyAllocated memory may only be backed as it is used
	MemoryPropertyLazilyAllocated
)

// BufferUsageFlags lists the ways a buffer may be used
type BufferUsageFlags int32

var bufferUsageFlagsMapping = common.NewFlagStringMapping[BufferUsageFlags]()

func (f BufferUsageFlags) Register(str string) {
	bufferUsageFlagsMapping.Register(f, str)
}
func (f BufferUsageFlags) String() string {
	return bufferUsageFlagsMapping.FlagsToString(f)
}

const (
	BufferUsageTransferSrc BufferUsageFlags = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniformTexel
	BufferUsageStorageTexel
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageIndirect
)

// ImageUsageFlags lists the ways an image may be used
type ImageUsageFlags int32

var imageUsageFlagsMapping = common.NewFlagStringMapping[ImageUsageFlags]()

func (f ImageUsageFlags) Register(str string) {
	imageUsageFlagsMapping.Register(f, str)
}
func (f ImageUsageFlags) String() string {
	return imageUsageFlagsMapping.FlagsToString(f)
}

const (
	ImageUsageTransferSrc ImageUsageFlags = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
)

// AccessFlags are the memory access types a barrier makes available or visible
type AccessFlags int32

var accessFlagsMapping = common.NewFlagStringMapping[AccessFlags]()

func (f AccessFlags) Register(str string) {
	accessFlagsMapping.Register(f, str)
}
func (f AccessFlags) String() string {
	return accessFlagsMapping.FlagsToString(f)
}

const (
	AccessShaderRead AccessFlags = 1 << iota
	AccessShaderWrite
	AccessTransferRead
	AccessTransferWrite
	AccessHostRead
	AccessHostWrite
)

// PipelineStageFlags are the pipeline stages a barrier waits on or blocks
type PipelineStageFlags int32

var pipelineStageFlagsMapping = common.NewFlagStringMapping[PipelineStageFlags]()

func (f PipelineStageFlags) Register(str string) {
	pipelineStageFlagsMapping.Register(f, str)
}
func (f PipelineStageFlags) String() string {
	return pipelineStageFlagsMapping.FlagsToString(f)
}

const (
	PipelineStageTopOfPipe PipelineStageFlags = 1 << iota
	PipelineStageVertexShader
	PipelineStageFragmentShader
	PipelineStageComputeShader
	PipelineStageTransfer
	PipelineStageBottomOfPipe
	PipelineStageHost
)

func init() {
	MemoryPropertyDeviceLocal.Register("DeviceLocal")
	MemoryPropertyHostVisible.Register("HostVisible")
	MemoryPropertyHostCoherent.Register("HostCoherent")
	MemoryPropertyHostCached.Register("HostCached")
	MemoryPropertyLazilyAllocated.Register("LazilyAllocated")

	BufferUsageTransferSrc.Register("TransferSrc")
	BufferUsageTransferDst.Register("TransferDst")
	BufferUsageUniformTexel.Register("UniformTexel")
	BufferUsageStorageTexel.Register("StorageTexel")
	BufferUsageUniform.Register("Uniform")
	BufferUsageStorage.Register("Storage")
	BufferUsageIndex.Register("Index")
	BufferUsageVertex.Register("Vertex")
	BufferUsageIndirect.Register("Indirect")

	ImageUsageTransferSrc.Register("TransferSrc")
	ImageUsageTransferDst.Register("TransferDst")
	ImageUsageSampled.Register("Sampled")
	ImageUsageStorage.Register("Storage")
	ImageUsageColorAttachment.Register("ColorAttachment")
	ImageUsageDepthStencilAttachment.Register("DepthStencilAttachment")

	AccessShaderRead.Register("ShaderRead")
	AccessShaderWrite.Register("ShaderWrite")
	AccessTransferRead.Register("TransferRead")
	AccessTransferWrite.Register("TransferWrite")
	AccessHostRead.Register("HostRead")
	AccessHostWrite.Register("HostWrite")

	PipelineStageTopOfPipe.Register("TopOfPipe")
	PipelineStageVertexShader.Register("VertexShader")
	PipelineStageFragmentShader.Register("FragmentShader")
	PipelineStageComputeShader.Register("ComputeShader")
	PipelineStageTransfer.Register("Transfer")
	PipelineStageBottomOfPipe.Register("BottomOfPipe")
	PipelineStageHost.Register("Host")
}

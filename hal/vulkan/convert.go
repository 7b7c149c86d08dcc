package vulkan

import (
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/constraints"
)

type flagPair[H constraints.Integer, V constraints.Integer] struct {
	hal    H
	vulkan V
}

// convertFlags translates each hal bit set in flags to its vulkan counterpart. Bits without an
// entry in pairs are dropped.
func convertFlags[H constraints.Integer, V constraints.Integer](flags H, pairs []flagPair[H, V]) V {
	var out V
	for _, pair := range pairs {
		if flags&pair.hal != 0 {
			out |= pair.vulkan
		}
	}
	return out
}

// convertFlagsBack is convertFlags in the other direction
func convertFlagsBack[H constraints.Integer, V constraints.Integer](flags V, pairs []flagPair[H, V]) H {
	var out H
	for _, pair := range pairs {
		if flags&pair.vulkan != 0 {
			out |= pair.hal
		}
	}
	return out
}

var memoryPropertyPairs = []flagPair[hal.MemoryPropertyFlags, core1_0.MemoryPropertyFlags]{
	{hal.MemoryPropertyDeviceLocal, core1_0.MemoryPropertyDeviceLocal},
	{hal.MemoryPropertyHostVisible, core1_0.MemoryPropertyHostVisible},
	{hal.MemoryPropertyHostCoherent, core1_0.MemoryPropertyHostCoherent},
	{hal.MemoryPropertyHostCached, core1_0.MemoryPropertyHostCached},
	{hal.MemoryPropertyLazilyAllocated, core1_0.MemoryPropertyLazilyAllocated},
}

var bufferUsagePairs = []flagPair[hal.BufferUsageFlags, core1_0.BufferUsageFlags]{
	{hal.BufferUsageTransferSrc, core1_0.BufferUsageTransferSrc},
	{hal.BufferUsageTransferDst, core1_0.BufferUsageTransferDst},
	{hal.BufferUsageUniformTexel, core1_0.BufferUsageUniformTexelBuffer},
	{hal.BufferUsageStorageTexel, core1_0.BufferUsageStorageTexelBuffer},
	{hal.BufferUsageUniform, core1_0.BufferUsageUniformBuffer},
	{hal.BufferUsageStorage, core1_0.BufferUsageStorageBuffer},
	{hal.BufferUsageIndex, core1_0.BufferUsageIndexBuffer},
	{hal.BufferUsageVertex, core1_0.BufferUsageVertexBuffer},
	{hal.BufferUsageIndirect, core1_0.BufferUsageIndirectBuffer},
}

var imageUsagePairs = []flagPair[hal.ImageUsageFlags, core1_0.ImageUsageFlags]{
	{hal.ImageUsageTransferSrc, core1_0.ImageUsageTransferSrc},
	{hal.ImageUsageTransferDst, core1_0.ImageUsageTransferDst},
	{hal.ImageUsageSampled, core1_0.ImageUsageSampled},
	{hal.ImageUsageStorage, core1_0.ImageUsageStorage},
	{hal.ImageUsageColorAttachment, core1_0.ImageUsageColorAttachment},
	{hal.ImageUsageDepthStencilAttachment, core1_0.ImageUsageDepthStencilAttachment},
}

var accessPairs = []flagPair[hal.AccessFlags, core1_0.AccessFlags]{
	{hal.AccessShaderRead, core1_0.AccessShaderRead},
	{hal.AccessShaderWrite, core1_0.AccessShaderWrite},
	{hal.AccessTransferRead, core1_0.AccessTransferRead},
	{hal.AccessTransferWrite, core1_0.AccessTransferWrite},
	{hal.AccessHostRead, core1_0.AccessHostRead},
	{hal.AccessHostWrite, core1_0.AccessHostWrite},
}

var pipelineStagePairs = []flagPair[hal.PipelineStageFlags, core1_0.PipelineStageFlags]{
	{hal.PipelineStageTopOfPipe, core1_0.PipelineStageTopOfPipe},
	{hal.PipelineStageVertexShader, core1_0.PipelineStageVertexShader},
	{hal.PipelineStageFragmentShader, core1_0.PipelineStageFragmentShader},
	{hal.PipelineStageComputeShader, core1_0.PipelineStageComputeShader},
	{hal.PipelineStageTransfer, core1_0.PipelineStageTransfer},
	{hal.PipelineStageBottomOfPipe, core1_0.PipelineStageBottomOfPipe},
	{hal.PipelineStageHost, core1_0.PipelineStageHost},
}

var imageLayouts = map[hal.ImageLayout]core1_0.ImageLayout{
	hal.ImageLayoutUndefined:             core1_0.ImageLayoutUndefined,
	hal.ImageLayoutGeneral:               core1_0.ImageLayoutGeneral,
	hal.ImageLayoutTransferSrcOptimal:    core1_0.ImageLayoutTransferSrcOptimal,
	hal.ImageLayoutTransferDstOptimal:    core1_0.ImageLayoutTransferDstOptimal,
	hal.ImageLayoutShaderReadOnlyOptimal: core1_0.ImageLayoutShaderReadOnlyOptimal,
}

var formats = map[hal.Format]core1_0.Format{
	hal.FormatR8UNorm:      core1_0.FormatR8UnsignedNormalized,
	hal.FormatRG8UNorm:     core1_0.FormatR8G8UnsignedNormalized,
	hal.FormatRGBA8UNorm:   core1_0.FormatR8G8B8A8UnsignedNormalized,
	hal.FormatBGRA8UNorm:   core1_0.FormatB8G8R8A8UnsignedNormalized,
	hal.FormatR16SFloat:    core1_0.FormatR16SignedFloat,
	hal.FormatRGBA16SFloat: core1_0.FormatR16G16B16A16SignedFloat,
	hal.FormatR32SFloat:    core1_0.FormatR32SignedFloat,
	hal.FormatRGBA32SFloat: core1_0.FormatR32G32B32A32SignedFloat,
}

var imageTypes = map[hal.ImageType]core1_0.ImageType{
	hal.ImageType1D: core1_0.ImageType1D,
	hal.ImageType2D: core1_0.ImageType2D,
	hal.ImageType3D: core1_0.ImageType3D,
}

var filters = map[hal.Filter]core1_0.Filter{
	hal.FilterNearest: core1_0.FilterNearest,
	hal.FilterLinear:  core1_0.FilterLinear,
}

func convertMemoryProperties(props *core1_0.PhysicalDeviceMemoryProperties) hal.MemoryProperties {
	out := hal.MemoryProperties{
		MemoryTypes: make([]hal.MemoryType, 0, len(props.MemoryTypes)),
		MemoryHeaps: make([]hal.MemoryHeap, 0, len(props.MemoryHeaps)),
	}

	for _, memoryType := range props.MemoryTypes {
		out.MemoryTypes = append(out.MemoryTypes, hal.MemoryType{
			PropertyFlags: convertFlagsBack(memoryType.PropertyFlags, memoryPropertyPairs),
			HeapIndex:     memoryType.HeapIndex,
		})
	}

	for _, heap := range props.MemoryHeaps {
		out.MemoryHeaps = append(out.MemoryHeaps, hal.MemoryHeap{
			Size:        heap.Size,
			DeviceLocal: heap.Flags&core1_0.MemoryHeapDeviceLocal != 0,
		})
	}

	return out
}

func convertMemoryRequirements(reqs *core1_0.MemoryRequirements) hal.MemoryRequirements {
	return hal.MemoryRequirements{
		Size:           reqs.Size,
		Alignment:      reqs.Alignment,
		MemoryTypeBits: reqs.MemoryTypeBits,
	}
}

func convertExtent(extent hal.Extent3D) core1_0.Extent3D {
	return core1_0.Extent3D{Width: extent.Width, Height: extent.Height, Depth: extent.Depth}
}

func convertOffset(offset hal.Offset3D) core1_0.Offset3D {
	return core1_0.Offset3D{X: offset.X, Y: offset.Y, Z: offset.Z}
}

// Every image the pipeline touches is a color image, so only the color aspect is addressed
func convertSubresourceLayers(layers hal.ImageSubresourceLayers) core1_0.ImageSubresourceLayers {
	return core1_0.ImageSubresourceLayers{
		AspectMask:     core1_0.ImageAspectColor,
		MipLevel:       layers.MipLevel,
		BaseArrayLayer: layers.BaseArrayLayer,
		LayerCount:     layers.LayerCount,
	}
}

func convertSubresourceRange(subresources hal.ImageSubresourceRange) core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   subresources.BaseMipLevel,
		LevelCount:     subresources.LevelCount,
		BaseArrayLayer: subresources.BaseArrayLayer,
		LayerCount:     subresources.LayerCount,
	}
}

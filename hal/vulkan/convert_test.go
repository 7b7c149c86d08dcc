package vulkan

import (
	"testing"

	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func TestConvertFlags(t *testing.T) {
	require.Equal(t,
		core1_0.BufferUsageVertexBuffer|core1_0.BufferUsageTransferDst,
		convertFlags(hal.BufferUsageVertex|hal.BufferUsageTransferDst, bufferUsagePairs))

	require.Equal(t,
		core1_0.PipelineStageTransfer|core1_0.PipelineStageFragmentShader,
		convertFlags(hal.PipelineStageTransfer|hal.PipelineStageFragmentShader, pipelineStagePairs))

	require.Equal(t, core1_0.AccessFlags(0), convertFlags(hal.AccessFlags(0), accessPairs))
}

func TestConvertMemoryProperties(t *testing.T) {
	props := convertMemoryProperties(&core1_0.PhysicalDeviceMemoryProperties{
		MemoryTypes: []core1_0.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal, HeapIndex: 0},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent, HeapIndex: 1},
		},
		MemoryHeaps: []core1_0.MemoryHeap{
			{Size: 1 << 30, Flags: core1_0.MemoryHeapDeviceLocal},
			{Size: 1 << 28},
		},
	})

	require.Equal(t, hal.MemoryProperties{
		MemoryTypes: []hal.MemoryType{
			{PropertyFlags: hal.MemoryPropertyDeviceLocal, HeapIndex: 0},
			{PropertyFlags: hal.MemoryPropertyHostVisible | hal.MemoryPropertyHostCoherent, HeapIndex: 1},
		},
		MemoryHeaps: []hal.MemoryHeap{
			{Size: 1 << 30, DeviceLocal: true},
			{Size: 1 << 28},
		},
	}, props)
}

func TestEveryEnumHasAVulkanValue(t *testing.T) {
	for _, layout := range []hal.ImageLayout{
		hal.ImageLayoutUndefined,
		hal.ImageLayoutGeneral,
		hal.ImageLayoutTransferSrcOptimal,
		hal.ImageLayoutTransferDstOptimal,
		hal.ImageLayoutShaderReadOnlyOptimal,
	} {
		require.Contains(t, imageLayouts, layout)
	}

	for _, format := range []hal.Format{
		hal.FormatR8UNorm,
		hal.FormatRG8UNorm,
		hal.FormatRGBA8UNorm,
		hal.FormatBGRA8UNorm,
		hal.FormatR16SFloat,
		hal.FormatRGBA16SFloat,
		hal.FormatR32SFloat,
		hal.FormatRGBA32SFloat,
	} {
		require.Contains(t, formats, format)
	}

	require.Len(t, filters, 2)
	require.Len(t, imageTypes, 3)
}

func TestConvertSubresources(t *testing.T) {
	require.Equal(t, core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   1,
		LevelCount:     2,
		BaseArrayLayer: 3,
		LayerCount:     4,
	}, convertSubresourceRange(hal.ImageSubresourceRange{BaseMipLevel: 1, LevelCount: 2, BaseArrayLayer: 3, LayerCount: 4}))
}

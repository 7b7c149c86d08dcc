package staging

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
)

type layoutTransition struct {
	oldLayout hal.ImageLayout
	newLayout hal.ImageLayout
}

type transitionMasks struct {
	srcAccess hal.AccessFlags
	dstAccess hal.AccessFlags
	srcStages hal.PipelineStageFlags
	dstStages hal.PipelineStageFlags
}

// layoutTransitions lists every layout change the pipeline performs, with the access masks and
// stages its barrier must cover
var layoutTransitions = map[layoutTransition]transitionMasks{
	{hal.ImageLayoutUndefined, hal.ImageLayoutTransferDstOptimal}: {
		dstAccess: hal.AccessTransferWrite,
		srcStages: hal.PipelineStageTopOfPipe,
		dstStages: hal.PipelineStageTransfer,
	},
	{hal.ImageLayoutUndefined, hal.ImageLayoutShaderReadOnlyOptimal}: {
		dstAccess: hal.AccessShaderRead,
		srcStages: hal.PipelineStageTopOfPipe,
		dstStages: hal.PipelineStageFragmentShader,
	},
	{hal.ImageLayoutTransferDstOptimal, hal.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: hal.AccessTransferWrite,
		dstAccess: hal.AccessShaderRead,
		srcStages: hal.PipelineStageTransfer,
		dstStages: hal.PipelineStageFragmentShader,
	},
	{hal.ImageLayoutShaderReadOnlyOptimal, hal.ImageLayoutTransferDstOptimal}: {
		srcAccess: hal.AccessShaderRead,
		dstAccess: hal.AccessTransferWrite,
		srcStages: hal.PipelineStageFragmentShader,
		dstStages: hal.PipelineStageTransfer,
	},
	{hal.ImageLayoutTransferDstOptimal, hal.ImageLayoutTransferSrcOptimal}: {
		srcAccess: hal.AccessTransferWrite,
		dstAccess: hal.AccessTransferRead,
		srcStages: hal.PipelineStageTransfer,
		dstStages: hal.PipelineStageTransfer,
	},
	{hal.ImageLayoutTransferSrcOptimal, hal.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: hal.AccessTransferRead,
		dstAccess: hal.AccessShaderRead,
		srcStages: hal.PipelineStageTransfer,
		dstStages: hal.PipelineStageFragmentShader,
	},
}

// transitionImage records a barrier moving a subresource range of image between two layouts
func transitionImage(cmd hal.CommandBuffer, image hal.Image, oldLayout, newLayout hal.ImageLayout, subresources hal.ImageSubresourceRange) error {
	masks, ok := layoutTransitions[layoutTransition{oldLayout, newLayout}]
	if !ok {
		return cerrors.AssertionFailedf("unsupported image layout transition from %s to %s", oldLayout, newLayout)
	}

	return cmd.PipelineBarrier(masks.srcStages, masks.dstStages, hal.ImageBarrier{
		Image:            image,
		SrcAccessMask:    masks.srcAccess,
		DstAccessMask:    masks.dstAccess,
		OldLayout:        oldLayout,
		NewLayout:        newLayout,
		SubresourceRange: subresources,
	})
}

package vulkan

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/vkngwrapper/core/v2/core1_0"
)

type commandBuffer struct {
	device        *Device
	commandBuffer core1_0.CommandBuffer
}

var _ hal.CommandBuffer = &commandBuffer{}

func (c *commandBuffer) Begin() error {
	_, err := c.commandBuffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return cerrors.Wrap(err, "beginning command buffer")
}

func (c *commandBuffer) End() error {
	_, err := c.commandBuffer.End()
	return cerrors.Wrap(err, "ending command buffer")
}

func (c *commandBuffer) CopyBuffer(src hal.Buffer, dst hal.Buffer, regions ...hal.BufferCopy) error {
	srcBuffer, err := asBuffer(c.device, src)
	if err != nil {
		return err
	}

	dstBuffer, err := asBuffer(c.device, dst)
	if err != nil {
		return err
	}

	copies := make([]core1_0.BufferCopy, 0, len(regions))
	for _, region := range regions {
		copies = append(copies, core1_0.BufferCopy{
			SrcOffset: region.SrcOffset,
			DstOffset: region.DstOffset,
			Size:      region.Size,
		})
	}

	return c.commandBuffer.CmdCopyBuffer(srcBuffer.buffer, dstBuffer.buffer, copies)
}

func (c *commandBuffer) CopyBufferToImage(src hal.Buffer, dst hal.Image, dstLayout hal.ImageLayout, regions ...hal.BufferImageCopy) error {
	srcBuffer, err := asBuffer(c.device, src)
	if err != nil {
		return err
	}

	dstImage, err := asImage(c.device, dst)
	if err != nil {
		return err
	}

	layout, ok := imageLayouts[dstLayout]
	if !ok {
		return cerrors.Newf("unknown image layout %d", dstLayout)
	}

	copies := make([]core1_0.BufferImageCopy, 0, len(regions))
	for _, region := range regions {
		// Zero row length and image height mean the buffer is tightly packed
		copies = append(copies, core1_0.BufferImageCopy{
			BufferOffset:     region.BufferOffset,
			ImageSubresource: convertSubresourceLayers(region.ImageSubresource),
			ImageOffset:      convertOffset(region.ImageOffset),
			ImageExtent:      convertExtent(region.ImageExtent),
		})
	}

	return c.commandBuffer.CmdCopyBufferToImage(srcBuffer.buffer, dstImage.image, layout, copies)
}

func (c *commandBuffer) PipelineBarrier(srcStages hal.PipelineStageFlags, dstStages hal.PipelineStageFlags, barriers ...hal.ImageBarrier) error {
	imageBarriers := make([]core1_0.ImageMemoryBarrier, 0, len(barriers))
	for _, barrier := range barriers {
		img, err := asImage(c.device, barrier.Image)
		if err != nil {
			return err
		}

		oldLayout, ok := imageLayouts[barrier.OldLayout]
		if !ok {
			return cerrors.Newf("unknown image layout %d", barrier.OldLayout)
		}

		newLayout, ok := imageLayouts[barrier.NewLayout]
		if !ok {
			return cerrors.Newf("unknown image layout %d", barrier.NewLayout)
		}

		// Matching queue family indices mean no ownership transfer
		imageBarriers = append(imageBarriers, core1_0.ImageMemoryBarrier{
			SrcAccessMask:       convertFlags(barrier.SrcAccessMask, accessPairs),
			DstAccessMask:       convertFlags(barrier.DstAccessMask, accessPairs),
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: c.device.queueFamilyIndex,
			DstQueueFamilyIndex: c.device.queueFamilyIndex,
			Image:               img.image,
			SubresourceRange:    convertSubresourceRange(barrier.SubresourceRange),
		})
	}

	return c.commandBuffer.CmdPipelineBarrier(
		convertFlags(srcStages, pipelineStagePairs),
		convertFlags(dstStages, pipelineStagePairs),
		0, nil, nil, imageBarriers)
}

func (c *commandBuffer) BlitImage(src hal.Image, srcLayout hal.ImageLayout, dst hal.Image, dstLayout hal.ImageLayout, filter hal.Filter, regions ...hal.ImageBlit) error {
	srcImage, err := asImage(c.device, src)
	if err != nil {
		return err
	}

	dstImage, err := asImage(c.device, dst)
	if err != nil {
		return err
	}

	vulkanSrcLayout, ok := imageLayouts[srcLayout]
	if !ok {
		return cerrors.Newf("unknown image layout %d", srcLayout)
	}

	vulkanDstLayout, ok := imageLayouts[dstLayout]
	if !ok {
		return cerrors.Newf("unknown image layout %d", dstLayout)
	}

	vulkanFilter, ok := filters[filter]
	if !ok {
		return cerrors.Newf("unknown filter %d", filter)
	}

	blits := make([]core1_0.ImageBlit, 0, len(regions))
	for _, region := range regions {
		blits = append(blits, core1_0.ImageBlit{
			SrcSubresource: convertSubresourceLayers(region.SrcSubresource),
			SrcOffsets:     [2]core1_0.Offset3D{convertOffset(region.SrcOffsets[0]), convertOffset(region.SrcOffsets[1])},
			DstSubresource: convertSubresourceLayers(region.DstSubresource),
			DstOffsets:     [2]core1_0.Offset3D{convertOffset(region.DstOffsets[0]), convertOffset(region.DstOffsets[1])},
		})
	}

	return c.commandBuffer.CmdBlitImage(srcImage.image, vulkanSrcLayout, dstImage.image, vulkanDstLayout, blits, vulkanFilter)
}

func (c *commandBuffer) Free() {
	if c.commandBuffer == nil {
		return
	}

	c.device.device.FreeCommandBuffers([]core1_0.CommandBuffer{c.commandBuffer})
	c.commandBuffer = nil
}

type queue struct {
	device *Device
	queue  core1_0.Queue
}

var _ hal.Queue = &queue{}

func (q *queue) Submit(commandBuffers ...hal.CommandBuffer) error {
	vulkanCommandBuffers := make([]core1_0.CommandBuffer, 0, len(commandBuffers))
	for _, cmd := range commandBuffers {
		vulkanCommandBuffer, ok := cmd.(*commandBuffer)
		if !ok || vulkanCommandBuffer.device != q.device || vulkanCommandBuffer.commandBuffer == nil {
			return cerrors.New("command buffer was not allocated by this device or has been freed")
		}

		vulkanCommandBuffers = append(vulkanCommandBuffers, vulkanCommandBuffer.commandBuffer)
	}

	_, err := q.queue.Submit(nil, []core1_0.SubmitInfo{
		{CommandBuffers: vulkanCommandBuffers},
	})
	return cerrors.Wrap(err, "submitting command buffers")
}

func (q *queue) WaitIdle() error {
	_, err := q.queue.WaitIdle()
	return cerrors.Wrap(err, "waiting for queue idle")
}

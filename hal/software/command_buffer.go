package software

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
)

type commandBufferState int

const (
	commandBufferInitial commandBufferState = iota
	commandBufferRecording
	commandBufferExecutable
	commandBufferSubmitted
	commandBufferInvalid
)

type command func() error

type commandBuffer struct {
	device   *Device
	id       uint64
	state    commandBufferState
	freed    bool
	err      error
	commands []command
}

var _ hal.CommandBuffer = &commandBuffer{}

func (c *commandBuffer) Begin() error {
	if c.freed {
		return cerrors.New("command buffer has been freed")
	}

	if c.state == commandBufferRecording {
		return cerrors.New("command buffer is already recording")
	}

	c.state = commandBufferRecording
	c.err = nil
	c.commands = c.commands[:0]
	return nil
}

func (c *commandBuffer) End() error {
	if c.state != commandBufferRecording {
		return cerrors.New("command buffer is not recording")
	}

	if c.err != nil {
		c.state = commandBufferInvalid
		return c.err
	}

	c.state = commandBufferExecutable
	return nil
}

func (c *commandBuffer) Free() {
	if c.freed {
		return
	}

	c.freed = true
	c.device.unregister(c.id)
}

// record validates a command and appends it to the buffer. A failed validation poisons the
// command buffer until the next Begin.
func (c *commandBuffer) record(name string, validate func() (command, error)) error {
	if c.freed {
		return cerrors.Newf("%s: command buffer has been freed", name)
	}

	if c.state != commandBufferRecording {
		return cerrors.Newf("%s: command buffer is not recording", name)
	}

	cmd, err := validate()
	if err != nil {
		err = cerrors.Wrap(err, name)
		if c.err == nil {
			c.err = err
		}
		return err
	}

	c.commands = append(c.commands, func() error {
		return cerrors.Wrap(cmd(), name)
	})
	return nil
}

func (c *commandBuffer) CopyBuffer(src hal.Buffer, dst hal.Buffer, regions ...hal.BufferCopy) error {
	return c.record("CopyBuffer", func() (command, error) {
		srcBuffer, err := asBuffer(c.device, src)
		if err != nil {
			return nil, err
		}

		dstBuffer, err := asBuffer(c.device, dst)
		if err != nil {
			return nil, err
		}

		if srcBuffer.desc.Usage&hal.BufferUsageTransferSrc == 0 {
			return nil, cerrors.Newf("source buffer usage %s lacks TransferSrc", srcBuffer.desc.Usage)
		}

		if dstBuffer.desc.Usage&hal.BufferUsageTransferDst == 0 {
			return nil, cerrors.Newf("destination buffer usage %s lacks TransferDst", dstBuffer.desc.Usage)
		}

		if len(regions) == 0 {
			return nil, cerrors.New("no regions to copy")
		}

		for _, region := range regions {
			if region.Size <= 0 || region.SrcOffset < 0 || region.DstOffset < 0 ||
				region.SrcOffset+region.Size > srcBuffer.desc.Size || region.DstOffset+region.Size > dstBuffer.desc.Size {
				return nil, cerrors.Newf("copy of %d bytes from offset %d to offset %d exceeds the source (%d bytes) or destination (%d bytes)",
					region.Size, region.SrcOffset, region.DstOffset, srcBuffer.desc.Size, dstBuffer.desc.Size)
			}
		}

		return func() error {
			srcData, err := srcBuffer.contents()
			if err != nil {
				return err
			}

			dstData, err := dstBuffer.contents()
			if err != nil {
				return err
			}

			for _, region := range regions {
				copy(dstData[region.DstOffset:region.DstOffset+region.Size], srcData[region.SrcOffset:region.SrcOffset+region.Size])
			}
			return nil
		}, nil
	})
}

func checkBox(img *image, mipLevel int, offset hal.Offset3D, extent hal.Extent3D) error {
	mipExtent := img.desc.Extent.MipExtent(mipLevel)
	if offset.X < 0 || offset.Y < 0 || offset.Z < 0 || extent.Width < 1 || extent.Height < 1 || extent.Depth < 1 ||
		offset.X+extent.Width > mipExtent.Width || offset.Y+extent.Height > mipExtent.Height || offset.Z+extent.Depth > mipExtent.Depth {
		return cerrors.Newf("box at (%d, %d, %d) of extent %dx%dx%d exceeds mip level %d of extent %dx%dx%d",
			offset.X, offset.Y, offset.Z, extent.Width, extent.Height, extent.Depth,
			mipLevel, mipExtent.Width, mipExtent.Height, mipExtent.Depth)
	}

	return nil
}

func (c *commandBuffer) CopyBufferToImage(src hal.Buffer, dst hal.Image, dstLayout hal.ImageLayout, regions ...hal.BufferImageCopy) error {
	return c.record("CopyBufferToImage", func() (command, error) {
		srcBuffer, err := asBuffer(c.device, src)
		if err != nil {
			return nil, err
		}

		dstImage, err := asImage(c.device, dst)
		if err != nil {
			return nil, err
		}

		if srcBuffer.desc.Usage&hal.BufferUsageTransferSrc == 0 {
			return nil, cerrors.Newf("source buffer usage %s lacks TransferSrc", srcBuffer.desc.Usage)
		}

		if dstImage.desc.Usage&hal.ImageUsageTransferDst == 0 {
			return nil, cerrors.Newf("destination image usage %s lacks TransferDst", dstImage.desc.Usage)
		}

		if dstLayout != hal.ImageLayoutTransferDstOptimal && dstLayout != hal.ImageLayoutGeneral {
			return nil, cerrors.Newf("images cannot be copied to in layout %s", dstLayout)
		}

		if len(regions) == 0 {
			return nil, cerrors.New("no regions to copy")
		}

		texelSize := dstImage.desc.Format.TexelSize()
		for _, region := range regions {
			subresource := region.ImageSubresource
			err = dstImage.checkLayers(subresource.MipLevel, subresource.BaseArrayLayer, subresource.LayerCount)
			if err != nil {
				return nil, err
			}

			err = checkBox(dstImage, subresource.MipLevel, region.ImageOffset, region.ImageExtent)
			if err != nil {
				return nil, err
			}

			required := region.ImageExtent.Texels() * texelSize * subresource.LayerCount
			if region.BufferOffset < 0 || region.BufferOffset+required > srcBuffer.desc.Size {
				return nil, cerrors.Newf("copy reads %d bytes at offset %d from a buffer of %d bytes", required, region.BufferOffset, srcBuffer.desc.Size)
			}
		}

		return func() error {
			srcData, err := srcBuffer.contents()
			if err != nil {
				return err
			}

			err = dstImage.checkUsable()
			if err != nil {
				return err
			}

			for _, region := range regions {
				subresource := region.ImageSubresource
				err = dstImage.expectLayout(subresource.MipLevel, subresource.BaseArrayLayer, subresource.LayerCount, dstLayout)
				if err != nil {
					return err
				}

				extent := region.ImageExtent
				mipExtent := dstImage.desc.Extent.MipExtent(subresource.MipLevel)
				rowSize := extent.Width * texelSize
				srcOffset := region.BufferOffset

				for layer := subresource.BaseArrayLayer; layer < subresource.BaseArrayLayer+subresource.LayerCount; layer++ {
					level := dstImage.level(subresource.MipLevel, layer)
					for z := 0; z < extent.Depth; z++ {
						for y := 0; y < extent.Height; y++ {
							dstOffset := dstImage.texelOffset(mipExtent, region.ImageOffset.X, region.ImageOffset.Y+y, region.ImageOffset.Z+z)
							copy(level[dstOffset:dstOffset+rowSize], srcData[srcOffset:srcOffset+rowSize])
							srcOffset += rowSize
						}
					}
				}
			}
			return nil
		}, nil
	})
}

func (c *commandBuffer) PipelineBarrier(srcStages hal.PipelineStageFlags, dstStages hal.PipelineStageFlags, barriers ...hal.ImageBarrier) error {
	return c.record("PipelineBarrier", func() (command, error) {
		if srcStages == 0 || dstStages == 0 {
			return nil, cerrors.New("barriers must name source and destination stages")
		}

		images := make([]*image, len(barriers))
		for index, barrier := range barriers {
			img, err := asImage(c.device, barrier.Image)
			if err != nil {
				return nil, err
			}

			subresources := barrier.SubresourceRange
			if subresources.BaseMipLevel < 0 || subresources.LevelCount < 1 || subresources.BaseMipLevel+subresources.LevelCount > img.desc.MipLevels {
				return nil, cerrors.Newf("mip levels [%d, %d) are outside of the image's %d levels",
					subresources.BaseMipLevel, subresources.BaseMipLevel+subresources.LevelCount, img.desc.MipLevels)
			}

			err = img.checkLayers(subresources.BaseMipLevel, subresources.BaseArrayLayer, subresources.LayerCount)
			if err != nil {
				return nil, err
			}

			if barrier.NewLayout == hal.ImageLayoutUndefined {
				return nil, cerrors.New("images cannot be transitioned to the undefined layout")
			}

			images[index] = img
		}

		return func() error {
			for index, barrier := range barriers {
				img := images[index]
				err := img.checkUsable()
				if err != nil {
					return err
				}

				subresources := barrier.SubresourceRange
				for layer := subresources.BaseArrayLayer; layer < subresources.BaseArrayLayer+subresources.LayerCount; layer++ {
					for mipLevel := subresources.BaseMipLevel; mipLevel < subresources.BaseMipLevel+subresources.LevelCount; mipLevel++ {
						current := img.layout(mipLevel, layer)

						if barrier.OldLayout == hal.ImageLayoutUndefined {
							clear(img.level(mipLevel, layer))
						} else if current != barrier.OldLayout {
							return cerrors.Newf("mip level %d of array layer %d was transitioned from %s, but it is in layout %s",
								mipLevel, layer, barrier.OldLayout, current)
						}

						img.setLayout(mipLevel, layer, barrier.NewLayout)
					}
				}
			}
			return nil
		}, nil
	})
}

func (c *commandBuffer) BlitImage(src hal.Image, srcLayout hal.ImageLayout, dst hal.Image, dstLayout hal.ImageLayout, filter hal.Filter, regions ...hal.ImageBlit) error {
	return c.record("BlitImage", func() (command, error) {
		srcImage, err := asImage(c.device, src)
		if err != nil {
			return nil, err
		}

		dstImage, err := asImage(c.device, dst)
		if err != nil {
			return nil, err
		}

		if srcImage.desc.Usage&hal.ImageUsageTransferSrc == 0 {
			return nil, cerrors.Newf("source image usage %s lacks TransferSrc", srcImage.desc.Usage)
		}

		if dstImage.desc.Usage&hal.ImageUsageTransferDst == 0 {
			return nil, cerrors.Newf("destination image usage %s lacks TransferDst", dstImage.desc.Usage)
		}

		if srcLayout != hal.ImageLayoutTransferSrcOptimal && srcLayout != hal.ImageLayoutGeneral {
			return nil, cerrors.Newf("images cannot be blitted from in layout %s", srcLayout)
		}

		if dstLayout != hal.ImageLayoutTransferDstOptimal && dstLayout != hal.ImageLayoutGeneral {
			return nil, cerrors.Newf("images cannot be blitted to in layout %s", dstLayout)
		}

		if srcImage.desc.Format != dstImage.desc.Format {
			return nil, cerrors.Newf("cannot blit from format %s to format %s", srcImage.desc.Format, dstImage.desc.Format)
		}

		if len(regions) == 0 {
			return nil, cerrors.New("no regions to blit")
		}

		for _, region := range regions {
			err = validateBlitRegion(srcImage, dstImage, region)
			if err != nil {
				return nil, err
			}
		}

		return func() error {
			err := srcImage.checkUsable()
			if err != nil {
				return err
			}

			err = dstImage.checkUsable()
			if err != nil {
				return err
			}

			for _, region := range regions {
				err = srcImage.expectLayout(region.SrcSubresource.MipLevel, region.SrcSubresource.BaseArrayLayer, region.SrcSubresource.LayerCount, srcLayout)
				if err != nil {
					return err
				}

				err = dstImage.expectLayout(region.DstSubresource.MipLevel, region.DstSubresource.BaseArrayLayer, region.DstSubresource.LayerCount, dstLayout)
				if err != nil {
					return err
				}

				for layer := 0; layer < region.SrcSubresource.LayerCount; layer++ {
					blit(srcImage, region.SrcSubresource.MipLevel, region.SrcSubresource.BaseArrayLayer+layer, region.SrcOffsets,
						dstImage, region.DstSubresource.MipLevel, region.DstSubresource.BaseArrayLayer+layer, region.DstOffsets,
						filter)
				}
			}
			return nil
		}, nil
	})
}

func asCommandBuffer(device *Device, cmd hal.CommandBuffer) (*commandBuffer, error) {
	softwareCommandBuffer, ok := cmd.(*commandBuffer)
	if !ok || softwareCommandBuffer.device != device {
		return nil, cerrors.New("command buffer was not allocated by this device")
	}

	return softwareCommandBuffer, nil
}

package staging

import (
	"log/slog"

	"github.com/liufeipengkk1/LLGL/hal"
)

// GenerateAllMips rebuilds every mip level of every layer of tex from its first level
func (u *Uploader) GenerateAllMips(tex *Texture) error {
	if tex.released() {
		return invalidUsagef("cannot generate mips for a released texture")
	}

	return u.GenerateMips(tex, 0, tex.MipLevels(), 0, tex.ArrayLayers())
}

// GenerateMips rebuilds mip levels baseMip+1 through baseMip+mipCount-1 of layers baseLayer
// through baseLayer+layerCount-1, each level blitted from the one before it at half the extent.
// Counts that run past the end of the texture are clamped. The texture is left ready for
// sampling.
func (u *Uploader) GenerateMips(tex *Texture, baseMip, mipCount, baseLayer, layerCount int) error {
	u.debug("Uploader::GenerateMips",
		slog.Int("baseMip", baseMip),
		slog.Int("mipCount", mipCount),
		slog.Int("baseLayer", baseLayer),
		slog.Int("layerCount", layerCount))

	u.mutex.Lock()
	defer u.mutex.Unlock()

	if tex.released() {
		return invalidUsagef("cannot generate mips for a released texture")
	}

	mipLevels := tex.imageDesc.MipLevels
	arrayLayers := tex.imageDesc.ArrayLayers
	if baseMip < 0 || baseMip >= mipLevels || baseLayer < 0 || baseLayer >= arrayLayers || mipCount <= 0 || layerCount <= 0 {
		return invalidUsagef("mip range [%d, +%d) and layer range [%d, +%d) do not select anything in a texture with %d mip levels and %d layers",
			baseMip, mipCount, baseLayer, layerCount, mipLevels, arrayLayers)
	}

	mipCount = min(mipCount, mipLevels-baseMip)
	layerCount = min(layerCount, arrayLayers-baseLayer)
	if mipCount == 1 {
		return nil
	}

	err := u.submit(func(cmd hal.CommandBuffer) error {
		return recordMipChain(cmd, tex, baseMip, mipCount, baseLayer, layerCount)
	})
	if err != nil {
		return err
	}

	tex.layout = hal.ImageLayoutShaderReadOnlyOptimal
	return nil
}

func recordMipChain(cmd hal.CommandBuffer, tex *Texture, baseMip, mipCount, baseLayer, layerCount int) error {
	image := tex.image

	// The base level keeps its contents, so it moves from the current layout rather than from
	// undefined
	err := transitionImage(cmd, image, tex.layout, hal.ImageLayoutTransferDstOptimal, hal.ImageSubresourceRange{
		BaseMipLevel:   baseMip,
		LevelCount:     mipCount,
		BaseArrayLayer: baseLayer,
		LayerCount:     layerCount,
	})
	if err != nil {
		return err
	}

	for layer := baseLayer; layer < baseLayer+layerCount; layer++ {
		extent := tex.imageDesc.Extent.MipExtent(baseMip)

		for level := baseMip + 1; level < baseMip+mipCount; level++ {
			nextExtent := hal.Extent3D{
				Width:  max(1, extent.Width/2),
				Height: max(1, extent.Height/2),
				Depth:  max(1, extent.Depth/2),
			}

			source := hal.ImageSubresourceRange{BaseMipLevel: level - 1, LevelCount: 1, BaseArrayLayer: layer, LayerCount: 1}
			err = transitionImage(cmd, image, hal.ImageLayoutTransferDstOptimal, hal.ImageLayoutTransferSrcOptimal, source)
			if err != nil {
				return err
			}

			err = cmd.BlitImage(image, hal.ImageLayoutTransferSrcOptimal, image, hal.ImageLayoutTransferDstOptimal, hal.FilterLinear, hal.ImageBlit{
				SrcSubresource: hal.ImageSubresourceLayers{MipLevel: level - 1, BaseArrayLayer: layer, LayerCount: 1},
				SrcOffsets:     [2]hal.Offset3D{{}, {X: extent.Width, Y: extent.Height, Z: extent.Depth}},
				DstSubresource: hal.ImageSubresourceLayers{MipLevel: level, BaseArrayLayer: layer, LayerCount: 1},
				DstOffsets:     [2]hal.Offset3D{{}, {X: nextExtent.Width, Y: nextExtent.Height, Z: nextExtent.Depth}},
			})
			if err != nil {
				return err
			}

			err = transitionImage(cmd, image, hal.ImageLayoutTransferSrcOptimal, hal.ImageLayoutShaderReadOnlyOptimal, source)
			if err != nil {
				return err
			}

			extent = nextExtent
		}

		err = transitionImage(cmd, image, hal.ImageLayoutTransferDstOptimal, hal.ImageLayoutShaderReadOnlyOptimal, hal.ImageSubresourceRange{
			BaseMipLevel:   baseMip + mipCount - 1,
			LevelCount:     1,
			BaseArrayLayer: layer,
			LayerCount:     1,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

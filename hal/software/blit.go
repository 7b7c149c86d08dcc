package software

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
)

type box struct {
	min [3]int
	max [3]int
}

func boxFromOffsets(offsets [2]hal.Offset3D) box {
	return box{
		min: [3]int{min(offsets[0].X, offsets[1].X), min(offsets[0].Y, offsets[1].Y), min(offsets[0].Z, offsets[1].Z)},
		max: [3]int{max(offsets[0].X, offsets[1].X), max(offsets[0].Y, offsets[1].Y), max(offsets[0].Z, offsets[1].Z)},
	}
}

func (b box) size(axis int) int {
	return b.max[axis] - b.min[axis]
}

func (b box) extent() hal.Extent3D {
	return hal.Extent3D{Width: b.size(0), Height: b.size(1), Depth: b.size(2)}
}

func validateBlitRegion(src, dst *image, region hal.ImageBlit) error {
	if region.SrcSubresource.LayerCount != region.DstSubresource.LayerCount {
		return cerrors.Newf("blit source has %d layers but destination has %d", region.SrcSubresource.LayerCount, region.DstSubresource.LayerCount)
	}

	err := src.checkLayers(region.SrcSubresource.MipLevel, region.SrcSubresource.BaseArrayLayer, region.SrcSubresource.LayerCount)
	if err != nil {
		return err
	}

	err = dst.checkLayers(region.DstSubresource.MipLevel, region.DstSubresource.BaseArrayLayer, region.DstSubresource.LayerCount)
	if err != nil {
		return err
	}

	if src == dst && region.SrcSubresource.MipLevel == region.DstSubresource.MipLevel {
		return cerrors.New("blit source and destination overlap")
	}

	srcBox := boxFromOffsets(region.SrcOffsets)
	err = checkBox(src, region.SrcSubresource.MipLevel, hal.Offset3D{X: srcBox.min[0], Y: srcBox.min[1], Z: srcBox.min[2]}, srcBox.extent())
	if err != nil {
		return err
	}

	dstBox := boxFromOffsets(region.DstOffsets)
	return checkBox(dst, region.DstSubresource.MipLevel, hal.Offset3D{X: dstBox.min[0], Y: dstBox.min[1], Z: dstBox.min[2]}, dstBox.extent())
}

// footprint returns the range of source coordinates along one axis that destination coordinate
// d covers
func footprint(srcBox, dstBox box, axis, d int) (int, int) {
	srcSize := srcBox.size(axis)
	dstSize := dstBox.size(axis)
	rel := d - dstBox.min[axis]

	start := srcBox.min[axis] + rel*srcSize/dstSize
	end := srcBox.min[axis] + ((rel+1)*srcSize+dstSize-1)/dstSize
	if end <= start {
		end = start + 1
	}

	return start, end
}

// nearest returns the source coordinate sampled for destination coordinate d
func nearest(srcBox, dstBox box, axis, d int) int {
	srcSize := srcBox.size(axis)
	dstSize := dstBox.size(axis)
	rel := d - dstBox.min[axis]

	return srcBox.min[axis] + ((2*rel+1)*srcSize)/(2*dstSize)
}

// blit scales one layer of one mip level into another. Linear filtering averages every source
// texel under the destination texel, per byte, for 8-bit unorm formats. Other formats are
// always point sampled.
func blit(src *image, srcMip, srcLayer int, srcOffsets [2]hal.Offset3D,
	dst *image, dstMip, dstLayer int, dstOffsets [2]hal.Offset3D,
	filter hal.Filter) {

	srcBox := boxFromOffsets(srcOffsets)
	dstBox := boxFromOffsets(dstOffsets)
	srcExtent := src.desc.Extent.MipExtent(srcMip)
	dstExtent := dst.desc.Extent.MipExtent(dstMip)
	srcLevel := src.level(srcMip, srcLayer)
	dstLevel := dst.level(dstMip, dstLayer)

	texelSize := src.desc.Format.TexelSize()
	average := filter == hal.FilterLinear && src.desc.Format.IsUNorm8()
	sums := make([]int, texelSize)

	for z := dstBox.min[2]; z < dstBox.max[2]; z++ {
		for y := dstBox.min[1]; y < dstBox.max[1]; y++ {
			for x := dstBox.min[0]; x < dstBox.max[0]; x++ {
				dstOffset := dst.texelOffset(dstExtent, x, y, z)

				if !average {
					srcOffset := src.texelOffset(srcExtent, nearest(srcBox, dstBox, 0, x), nearest(srcBox, dstBox, 1, y), nearest(srcBox, dstBox, 2, z))
					copy(dstLevel[dstOffset:dstOffset+texelSize], srcLevel[srcOffset:srcOffset+texelSize])
					continue
				}

				x0, x1 := footprint(srcBox, dstBox, 0, x)
				y0, y1 := footprint(srcBox, dstBox, 1, y)
				z0, z1 := footprint(srcBox, dstBox, 2, z)

				clear(sums)
				count := 0
				for sz := z0; sz < z1; sz++ {
					for sy := y0; sy < y1; sy++ {
						for sx := x0; sx < x1; sx++ {
							srcOffset := src.texelOffset(srcExtent, sx, sy, sz)
							for channel := 0; channel < texelSize; channel++ {
								sums[channel] += int(srcLevel[srcOffset+channel])
							}
							count++
						}
					}
				}

				for channel := 0; channel < texelSize; channel++ {
					dstLevel[dstOffset+channel] = byte((sums[channel] + count/2) / count)
				}
			}
		}
	}
}

package software

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
)

// image stores each array layer as a full mip chain, largest level first, with texels tightly
// packed in x, y, z order
type image struct {
	device    *Device
	id        uint64
	desc      hal.ImageDescriptor
	memory    *memory
	offset    int
	destroyed bool

	layerSize int
	layouts   []hal.ImageLayout
}

var _ hal.Image = &image{}

func validateImageDescriptor(desc hal.ImageDescriptor) error {
	if desc.Format.TexelSize() == 0 {
		return cerrors.Newf("format %s cannot be used for images", desc.Format)
	}

	extent := desc.Extent
	if extent.Width <= 0 || extent.Height <= 0 || extent.Depth <= 0 {
		return cerrors.Newf("image extent %dx%dx%d is invalid", extent.Width, extent.Height, extent.Depth)
	}

	switch desc.Type {
	case hal.ImageType1D:
		if extent.Height != 1 || extent.Depth != 1 {
			return cerrors.New("1D images must have a height and depth of 1")
		}
	case hal.ImageType2D:
		if extent.Depth != 1 {
			return cerrors.New("2D images must have a depth of 1")
		}
	case hal.ImageType3D:
		if desc.ArrayLayers != 1 {
			return cerrors.New("3D images cannot have array layers")
		}
	default:
		return cerrors.Newf("unknown image type %d", desc.Type)
	}

	maxMips := memutils.MaxMipLevels(max(extent.Width, extent.Height, extent.Depth))
	if desc.MipLevels < 1 || desc.MipLevels > maxMips {
		return cerrors.Newf("an image of extent %dx%dx%d supports between 1 and %d mip levels, but %d were requested",
			extent.Width, extent.Height, extent.Depth, maxMips, desc.MipLevels)
	}

	if desc.ArrayLayers < 1 {
		return cerrors.Newf("images must have at least one array layer, but %d were requested", desc.ArrayLayers)
	}

	if desc.CubeCompatible && (desc.ArrayLayers%6 != 0 || extent.Width != extent.Height || desc.Type != hal.ImageType2D) {
		return cerrors.New("cube compatible images must be square 2D images with a multiple of 6 array layers")
	}

	return nil
}

func newImage(device *Device, desc hal.ImageDescriptor) *image {
	var layerSize int
	for level := 0; level < desc.MipLevels; level++ {
		layerSize += desc.Extent.MipExtent(level).Texels() * desc.Format.TexelSize()
	}

	return &image{
		device:    device,
		id:        device.register(objectImage),
		desc:      desc,
		layerSize: layerSize,
		layouts:   make([]hal.ImageLayout, desc.MipLevels*desc.ArrayLayers),
	}
}

func (i *image) Descriptor() hal.ImageDescriptor {
	return i.desc
}

func (i *image) MemoryRequirements() hal.MemoryRequirements {
	return hal.MemoryRequirements{
		Size:           memutils.AlignUp(i.layerSize*i.desc.ArrayLayers, 4),
		Alignment:      i.device.options.ImageAlignment,
		MemoryTypeBits: i.device.allMemoryTypeBits(),
	}
}

func (i *image) BindMemory(mem hal.Memory, offset int) error {
	if i.destroyed {
		return cerrors.New("image has been destroyed")
	}

	if i.memory != nil {
		return cerrors.New("image is already bound to memory")
	}

	softwareMemory, err := bindCheck(i.device, mem, offset, i.MemoryRequirements())
	if err != nil {
		return err
	}

	i.memory = softwareMemory
	i.offset = offset
	return nil
}

func (i *image) Destroy() {
	if i.destroyed {
		return
	}

	i.destroyed = true
	i.device.unregister(i.id)
}

func (i *image) checkUsable() error {
	if i.destroyed {
		return cerrors.New("image has been destroyed")
	}

	if i.memory == nil {
		return cerrors.New("image is not bound to memory")
	}

	if i.memory.freed {
		return cerrors.New("image memory has been freed")
	}

	return nil
}

func (i *image) checkLayers(mipLevel, baseLayer, layerCount int) error {
	if mipLevel < 0 || mipLevel >= i.desc.MipLevels {
		return cerrors.Newf("mip level %d is outside of the image's %d levels", mipLevel, i.desc.MipLevels)
	}

	if baseLayer < 0 || layerCount < 1 || baseLayer+layerCount > i.desc.ArrayLayers {
		return cerrors.Newf("array layers [%d, %d) are outside of the image's %d layers", baseLayer, baseLayer+layerCount, i.desc.ArrayLayers)
	}

	return nil
}

func (i *image) layout(mipLevel, layer int) hal.ImageLayout {
	return i.layouts[layer*i.desc.MipLevels+mipLevel]
}

func (i *image) setLayout(mipLevel, layer int, layout hal.ImageLayout) {
	i.layouts[layer*i.desc.MipLevels+mipLevel] = layout
}

// expectLayout fails unless every subresource of the mip level in the layer range is in layout
func (i *image) expectLayout(mipLevel, baseLayer, layerCount int, layout hal.ImageLayout) error {
	for layer := baseLayer; layer < baseLayer+layerCount; layer++ {
		current := i.layout(mipLevel, layer)
		if current != layout {
			return cerrors.Newf("mip level %d of array layer %d is in layout %s, but it was used as %s", mipLevel, layer, current, layout)
		}
	}

	return nil
}

// level returns the bytes of a single mip level of a single array layer
func (i *image) level(mipLevel, layer int) []byte {
	start := i.offset + layer*i.layerSize
	for level := 0; level < mipLevel; level++ {
		start += i.desc.Extent.MipExtent(level).Texels() * i.desc.Format.TexelSize()
	}

	size := i.desc.Extent.MipExtent(mipLevel).Texels() * i.desc.Format.TexelSize()
	return i.memory.data[start : start+size]
}

func (i *image) texelOffset(extent hal.Extent3D, x, y, z int) int {
	return ((z*extent.Height+y)*extent.Width + x) * i.desc.Format.TexelSize()
}

func asImage(device *Device, img hal.Image) (*image, error) {
	softwareImage, ok := img.(*image)
	if !ok || softwareImage.device != device {
		return nil, cerrors.New("image was not created by this device")
	}

	return softwareImage, nil
}

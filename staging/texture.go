package staging

import (
	"log/slog"

	cerrors "github.com/cockroachdb/errors"
	"github.com/liufeipengkk1/LLGL/devmem"
	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
)

type TextureType int

const (
	Texture1D TextureType = iota
	Texture2D
	Texture3D
	TextureCube
	Texture1DArray
	Texture2DArray
	TextureCubeArray
)

var textureTypeMapping = map[TextureType]string{
	Texture1D:        "Texture1D",
	Texture2D:        "Texture2D",
	Texture3D:        "Texture3D",
	TextureCube:      "TextureCube",
	Texture1DArray:   "Texture1DArray",
	Texture2DArray:   "Texture2DArray",
	TextureCubeArray: "TextureCubeArray",
}

func (t TextureType) String() string {
	return textureTypeMapping[t]
}

func (t TextureType) imageType() hal.ImageType {
	switch t {
	case Texture1D, Texture1DArray:
		return hal.ImageType1D
	case Texture3D:
		return hal.ImageType3D
	default:
		return hal.ImageType2D
	}
}

func (t TextureType) isCube() bool {
	return t == TextureCube || t == TextureCubeArray
}

type TextureDescriptor struct {
	Type   TextureType
	Format hal.Format
	// Extent is the size of the largest mip level. Dimensions the texture type does not have
	// are ignored.
	Extent hal.Extent3D
	// MipLevels is the number of mip levels; 0 requests a full mip chain
	MipLevels int
	// ArrayLayers is the number of array elements for array types. Each element of a cube
	// array is six layers.
	ArrayLayers int
	// Usage is added to the transfer and sampling usage every texture has
	Usage hal.ImageUsageFlags
}

// imageDescriptor resolves a texture descriptor into the image it describes
func (d TextureDescriptor) imageDescriptor() (hal.ImageDescriptor, error) {
	if _, ok := textureTypeMapping[d.Type]; !ok {
		return hal.ImageDescriptor{}, invalidUsagef("unknown texture type %d", d.Type)
	}

	if d.Format.TexelSize() == 0 {
		return hal.ImageDescriptor{}, invalidUsagef("format %s cannot be used for textures", d.Format)
	}

	extent := d.Extent
	switch d.Type.imageType() {
	case hal.ImageType1D:
		extent.Height, extent.Depth = 1, 1
	case hal.ImageType2D:
		extent.Depth = 1
	}

	if extent.Width <= 0 || extent.Height <= 0 || extent.Depth <= 0 {
		return hal.ImageDescriptor{}, invalidUsagef("texture extent %dx%dx%d is invalid", extent.Width, extent.Height, extent.Depth)
	}

	if d.Type.isCube() && extent.Width != extent.Height {
		return hal.ImageDescriptor{}, invalidUsagef("cube textures must be square, but the extent is %dx%d", extent.Width, extent.Height)
	}

	maxMips := memutils.MaxMipLevels(max(extent.Width, extent.Height, extent.Depth))
	mipLevels := d.MipLevels
	if mipLevels == 0 {
		mipLevels = maxMips
	}
	if mipLevels < 0 || mipLevels > maxMips {
		return hal.ImageDescriptor{}, invalidUsagef("a texture of extent %dx%dx%d supports up to %d mip levels, but %d were requested",
			extent.Width, extent.Height, extent.Depth, maxMips, mipLevels)
	}

	layers := 1
	switch d.Type {
	case Texture1DArray, Texture2DArray, TextureCubeArray:
		if d.ArrayLayers <= 0 {
			return hal.ImageDescriptor{}, invalidUsagef("%s requires at least one array layer", d.Type)
		}
		layers = d.ArrayLayers
	}
	if d.Type.isCube() {
		layers *= 6
	}

	return hal.ImageDescriptor{
		Type:           d.Type.imageType(),
		Format:         d.Format,
		Extent:         extent,
		MipLevels:      mipLevels,
		ArrayLayers:    layers,
		Usage:          d.Usage | hal.ImageUsageTransferSrc | hal.ImageUsageTransferDst | hal.ImageUsageSampled,
		CubeCompatible: d.Type.isCube(),
	}, nil
}

// Texture is a device-local image created by an Uploader. At rest, every subresource of the
// image is in the layout the Texture records.
type Texture struct {
	desc      TextureDescriptor
	imageDesc hal.ImageDescriptor
	image     hal.Image
	region    *devmem.Region
	layout    hal.ImageLayout
}

func (t *Texture) Descriptor() TextureDescriptor { return t.desc }

// Image returns the device image, or nil once the Texture has been released
func (t *Texture) Image() hal.Image { return t.image }

func (t *Texture) Region() *devmem.Region { return t.region }

func (t *Texture) Extent() hal.Extent3D { return t.imageDesc.Extent }

func (t *Texture) MipLevels() int { return t.imageDesc.MipLevels }

// ArrayLayers is the number of image layers, counting each cube face
func (t *Texture) ArrayLayers() int { return t.imageDesc.ArrayLayers }

// Layout is the layout the whole image is in between operations
func (t *Texture) Layout() hal.ImageLayout { return t.layout }

func (t *Texture) released() bool {
	return t == nil || t.image == nil
}

func (t *Texture) allSubresources() hal.ImageSubresourceRange {
	return hal.ImageSubresourceRange{
		LevelCount: t.imageDesc.MipLevels,
		LayerCount: t.imageDesc.ArrayLayers,
	}
}

// ImageDataSize returns the number of tightly packed bytes needed to fill extent across layers
// of a texture in format
func ImageDataSize(format hal.Format, extent hal.Extent3D, layers int) int {
	return extent.Texels() * layers * format.TexelSize()
}

func assertImageDataSize(given, required int) error {
	if given < required {
		return invalidUsagef("image data is too small: %d bytes are required, but only %d were given", required, given)
	}
	return nil
}

// CreateTexture creates a texture in device-local memory. When data is present it fills the
// first mip level of every layer, and must hold at least ImageDataSize bytes. Otherwise the
// texture's contents are undefined. Either way the texture is left ready for sampling.
func (u *Uploader) CreateTexture(desc TextureDescriptor, data []byte) (_ *Texture, err error) {
	u.debug("Uploader::CreateTexture",
		slog.String("type", desc.Type.String()),
		slog.String("format", desc.Format.String()),
		slog.Int("width", desc.Extent.Width),
		slog.Int("height", desc.Extent.Height),
		slog.Int("depth", desc.Extent.Depth))

	imageDesc, err := desc.imageDescriptor()
	if err != nil {
		return nil, err
	}

	if data != nil {
		err = assertImageDataSize(len(data), ImageDataSize(imageDesc.Format, imageDesc.Extent, imageDesc.ArrayLayers))
		if err != nil {
			return nil, err
		}
	}

	u.mutex.Lock()
	defer u.mutex.Unlock()

	texture := &Texture{desc: desc, imageDesc: imageDesc, layout: hal.ImageLayoutUndefined}
	defer func() {
		if err != nil {
			_ = u.releaseTexture(texture)
		}
	}()

	texture.image, err = u.device.CreateImage(imageDesc)
	if err != nil {
		return nil, memutils.WithClass(cerrors.Wrap(err, "creating texture image"), memutils.ErrDeviceFailure)
	}

	reqs := texture.image.MemoryRequirements()
	texture.region, err = u.memory.Allocate(reqs.Size, reqs.Alignment, reqs.MemoryTypeBits, hal.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = u.memory.BindImage(texture.region, texture.image)
	if err != nil {
		return nil, err
	}

	if data != nil {
		err = u.uploadToImage(texture, data, imageDesc.Extent, imageDesc.ArrayLayers)
		if err != nil {
			return nil, err
		}

		return texture, nil
	}

	err = u.submit(func(cmd hal.CommandBuffer) error {
		return transitionImage(cmd, texture.image, hal.ImageLayoutUndefined, hal.ImageLayoutShaderReadOnlyOptimal, texture.allSubresources())
	})
	if err != nil {
		return nil, err
	}

	texture.layout = hal.ImageLayoutShaderReadOnlyOptimal
	return texture, nil
}

// UploadToImage replaces the first mip level of the first layerCount layers of dst with data,
// starting at the origin and covering extent. The layers are tightly packed one after another.
// The other mip levels keep their contents; use GenerateMips to rebuild them.
func (u *Uploader) UploadToImage(dst *Texture, data []byte, extent hal.Extent3D, layerCount int) error {
	u.debug("Uploader::UploadToImage",
		slog.Int("size", len(data)),
		slog.Int("width", extent.Width),
		slog.Int("height", extent.Height),
		slog.Int("depth", extent.Depth),
		slog.Int("layers", layerCount))

	u.mutex.Lock()
	defer u.mutex.Unlock()

	if dst.released() {
		return invalidUsagef("cannot upload to a released texture")
	}

	full := dst.imageDesc.Extent
	if extent.Width <= 0 || extent.Height <= 0 || extent.Depth <= 0 ||
		extent.Width > full.Width || extent.Height > full.Height || extent.Depth > full.Depth {
		return invalidUsagef("upload extent %dx%dx%d does not fit a texture of extent %dx%dx%d",
			extent.Width, extent.Height, extent.Depth, full.Width, full.Height, full.Depth)
	}

	if layerCount <= 0 || layerCount > dst.imageDesc.ArrayLayers {
		return invalidUsagef("cannot upload %d layers to a texture with %d layers", layerCount, dst.imageDesc.ArrayLayers)
	}

	required := ImageDataSize(dst.imageDesc.Format, extent, layerCount)
	err := assertImageDataSize(len(data), required)
	if err != nil {
		return err
	}

	if u.config.exceedsBufferLimit(required) {
		return invalidUsagef("upload of %d bytes exceeds the limit of %s", required, u.config.MaxBufferSize.HumanReadable())
	}

	return u.uploadToImage(dst, data[:required], extent, layerCount)
}

func (u *Uploader) uploadToImage(dst *Texture, data []byte, extent hal.Extent3D, layerCount int) error {
	staging, err := u.createStagingBuffer(len(data), hal.BufferUsageTransferSrc, data)
	if err != nil {
		return err
	}

	err = u.submit(func(cmd hal.CommandBuffer) error {
		err := transitionImage(cmd, dst.image, dst.layout, hal.ImageLayoutTransferDstOptimal, dst.allSubresources())
		if err != nil {
			return err
		}

		err = cmd.CopyBufferToImage(staging.buffer, dst.image, hal.ImageLayoutTransferDstOptimal, hal.BufferImageCopy{
			ImageSubresource: hal.ImageSubresourceLayers{
				MipLevel:   0,
				LayerCount: layerCount,
			},
			ImageExtent: extent,
		})
		if err != nil {
			return err
		}

		return transitionImage(cmd, dst.image, hal.ImageLayoutTransferDstOptimal, hal.ImageLayoutShaderReadOnlyOptimal, dst.allSubresources())
	})
	if err == nil {
		dst.layout = hal.ImageLayoutShaderReadOnlyOptimal
	}

	return cerrors.CombineErrors(err, u.releaseStagingBuffer(staging))
}

// ReleaseTexture destroys tex and returns its memory. Releasing a nil or already released
// Texture does nothing.
func (u *Uploader) ReleaseTexture(tex *Texture) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if tex.released() {
		return nil
	}

	u.debug("Uploader::ReleaseTexture", slog.String("type", tex.desc.Type.String()))

	return u.releaseTexture(tex)
}

func (u *Uploader) releaseTexture(tex *Texture) error {
	if tex.image != nil {
		tex.image.Destroy()
		tex.image = nil
	}

	return u.memory.Release(tex.region)
}

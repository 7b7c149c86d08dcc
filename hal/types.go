package hal

type Extent3D struct {
	Width  int
	Height int
	Depth  int
}

// Texels returns the number of texels covered by the extent
func (e Extent3D) Texels() int {
	return e.Width * e.Height * e.Depth
}

// MipExtent returns the extent of mip level level, halving each dimension per level down to a
// minimum of 1
func (e Extent3D) MipExtent(level int) Extent3D {
	return Extent3D{
		Width:  max(1, e.Width>>level),
		Height: max(1, e.Height>>level),
		Depth:  max(1, e.Depth>>level),
	}
}

type Offset3D struct {
	X int
	Y int
	Z int
}

type MemoryType struct {
	PropertyFlags MemoryPropertyFlags
	HeapIndex     int
}

type MemoryHeap struct {
	Size        int
	DeviceLocal bool
}

// MemoryProperties describes the memory types and heaps a device exposes
type MemoryProperties struct {
	MemoryTypes []MemoryType
	MemoryHeaps []MemoryHeap
}

// MemoryRequirements is what a buffer or image needs from the memory it is bound to. Bit i of
// MemoryTypeBits is set when memory type i is acceptable.
type MemoryRequirements struct {
	Size           int
	Alignment      int
	MemoryTypeBits uint32
}

type BufferDescriptor struct {
	Size  int
	Usage BufferUsageFlags
}

type ImageDescriptor struct {
	Type        ImageType
	Format      Format
	Extent      Extent3D
	MipLevels   int
	ArrayLayers int
	Usage       ImageUsageFlags
	// CubeCompatible images may be viewed as cube maps; ArrayLayers must then be a multiple of 6
	CubeCompatible bool
}

type BufferCopy struct {
	SrcOffset int
	DstOffset int
	Size      int
}

// ImageSubresourceLayers selects a single mip level across a range of array layers
type ImageSubresourceLayers struct {
	MipLevel       int
	BaseArrayLayer int
	LayerCount     int
}

// ImageSubresourceRange selects a range of mip levels across a range of array layers
type ImageSubresourceRange struct {
	BaseMipLevel   int
	LevelCount     int
	BaseArrayLayer int
	LayerCount     int
}

// BufferImageCopy copies tightly packed texels from a buffer into an image. Layers are laid out
// one after another in the buffer, starting at BufferOffset.
type BufferImageCopy struct {
	BufferOffset     int
	ImageSubresource ImageSubresourceLayers
	ImageOffset      Offset3D
	ImageExtent      Extent3D
}

type ImageBlit struct {
	SrcSubresource ImageSubresourceLayers
	SrcOffsets     [2]Offset3D
	DstSubresource ImageSubresourceLayers
	DstOffsets     [2]Offset3D
}

// ImageBarrier transitions a subresource range of Image from OldLayout to NewLayout, making
// writes covered by SrcAccessMask visible to accesses covered by DstAccessMask
type ImageBarrier struct {
	Image            Image
	SrcAccessMask    AccessFlags
	DstAccessMask    AccessFlags
	OldLayout        ImageLayout
	NewLayout        ImageLayout
	SubresourceRange ImageSubresourceRange
}

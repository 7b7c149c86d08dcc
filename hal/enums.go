package hal

// ImageLayout is the arrangement of an image subresource in memory. Most device operations
// require a particular layout, and moving between layouts takes a barrier.
type ImageLayout int32

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutGeneral
	ImageLayoutTransferSrcOptimal
	ImageLayoutTransferDstOptimal
	ImageLayoutShaderReadOnlyOptimal
)

var imageLayoutMapping = map[ImageLayout]string{
	ImageLayoutUndefined:             "Undefined",
	ImageLayoutGeneral:               "General",
	ImageLayoutTransferSrcOptimal:    "TransferSrcOptimal",
	ImageLayoutTransferDstOptimal:    "TransferDstOptimal",
	ImageLayoutShaderReadOnlyOptimal: "ShaderReadOnlyOptimal",
}

func (l ImageLayout) String() string {
	return imageLayoutMapping[l]
}

// Filter selects how BlitImage samples its source when scaling
type Filter int32

const (
	FilterNearest Filter = iota
	FilterLinear
)

var filterMapping = map[Filter]string{
	FilterNearest: "Nearest",
	FilterLinear:  "Linear",
}

func (f Filter) String() string {
	return filterMapping[f]
}

// ImageType is the dimensionality of an image
type ImageType int32

const (
	ImageType1D ImageType = iota
	ImageType2D
	ImageType3D
)

var imageTypeMapping = map[ImageType]string{
	ImageType1D: "1D",
	ImageType2D: "2D",
	ImageType3D: "3D",
}

func (t ImageType) String() string {
	return imageTypeMapping[t]
}

// Format is the texel format of an image. Only uncompressed color formats are supported.
type Format int32

const (
	FormatUndefined Format = iota
	FormatR8UNorm
	FormatRG8UNorm
	FormatRGBA8UNorm
	FormatBGRA8UNorm
	FormatR16SFloat
	FormatRGBA16SFloat
	FormatR32SFloat
	FormatRGBA32SFloat
)

type formatInfo struct {
	name       string
	texelSize  int
	components int
}

var formatInfoMapping = map[Format]formatInfo{
	FormatUndefined:    {name: "Undefined"},
	FormatR8UNorm:      {name: "R8UNorm", texelSize: 1, components: 1},
	FormatRG8UNorm:     {name: "RG8UNorm", texelSize: 2, components: 2},
	FormatRGBA8UNorm:   {name: "RGBA8UNorm", texelSize: 4, components: 4},
	FormatBGRA8UNorm:   {name: "BGRA8UNorm", texelSize: 4, components: 4},
	FormatR16SFloat:    {name: "R16SFloat", texelSize: 2, components: 1},
	FormatRGBA16SFloat: {name: "RGBA16SFloat", texelSize: 8, components: 4},
	FormatR32SFloat:    {name: "R32SFloat", texelSize: 4, components: 1},
	FormatRGBA32SFloat: {name: "RGBA32SFloat", texelSize: 16, components: 4},
}

func (f Format) String() string {
	return formatInfoMapping[f].name
}

// TexelSize is the size in bytes of a single texel, or 0 for FormatUndefined
func (f Format) TexelSize() int {
	return formatInfoMapping[f].texelSize
}

// Components is the number of color channels in a texel
func (f Format) Components() int {
	return formatInfoMapping[f].components
}

// IsUNorm8 reports whether every channel of the format is a single unsigned normalized byte
func (f Format) IsUNorm8() bool {
	info := formatInfoMapping[f]
	return info.components > 0 && info.texelSize == info.components
}

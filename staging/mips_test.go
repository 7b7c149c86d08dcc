package staging

import (
	"bytes"
	"testing"

	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/hal/mocks"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var gradient = []byte{
	0, 10, 20, 30,
	40, 50, 60, 70,
	80, 90, 100, 110,
	120, 130, 140, 150,
}

func TestGenerateAllMips(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	tex, err := uploader.CreateTexture(TextureDescriptor{
		Type:   Texture2D,
		Format: hal.FormatR8UNorm,
		Extent: hal.Extent3D{Width: 4, Height: 4},
	}, gradient)
	require.NoError(t, err)

	before := device.Stats()
	require.NoError(t, uploader.GenerateAllMips(tex))
	after := device.Stats()

	require.Equal(t, before.Submissions+1, after.Submissions)
	require.Equal(t, before.Waits+1, after.Waits)

	requireContents(t, device, tex, 0, 0, gradient)
	requireContents(t, device, tex, 1, 0, []byte{25, 45, 105, 125})
	requireContents(t, device, tex, 2, 0, []byte{75})
	requireLayout(t, device, tex, hal.ImageLayoutShaderReadOnlyOptimal)
}

func TestGenerateMipsSelectsLayers(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	data := append(bytes.Repeat([]byte{40}, 16), gradient...)
	tex, err := uploader.CreateTexture(TextureDescriptor{
		Type:        Texture2DArray,
		Format:      hal.FormatR8UNorm,
		Extent:      hal.Extent3D{Width: 4, Height: 4},
		ArrayLayers: 2,
	}, data)
	require.NoError(t, err)

	require.NoError(t, uploader.GenerateMips(tex, 0, tex.MipLevels(), 1, 1))

	requireContents(t, device, tex, 1, 0, []byte{0, 0, 0, 0})
	requireContents(t, device, tex, 2, 0, []byte{0})
	requireContents(t, device, tex, 1, 1, []byte{25, 45, 105, 125})
	requireContents(t, device, tex, 2, 1, []byte{75})
	requireLayout(t, device, tex, hal.ImageLayoutShaderReadOnlyOptimal)

	require.NoError(t, uploader.GenerateAllMips(tex))
	requireContents(t, device, tex, 1, 0, []byte{40, 40, 40, 40})
	requireContents(t, device, tex, 2, 0, []byte{40})
}

func TestGenerateMipsFromBaseLevel(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	tex, err := uploader.CreateTexture(TextureDescriptor{
		Type:   Texture2D,
		Format: hal.FormatR8UNorm,
		Extent: hal.Extent3D{Width: 4, Height: 4},
	}, gradient)
	require.NoError(t, err)

	require.NoError(t, uploader.GenerateMips(tex, 0, 2, 0, 1))
	requireContents(t, device, tex, 1, 0, []byte{25, 45, 105, 125})
	requireContents(t, device, tex, 2, 0, []byte{0})

	// The upload replaces level 0 only, so level 2 must come from the old level 1
	require.NoError(t, uploader.UploadToImage(tex, bytes.Repeat([]byte{200}, 16), hal.Extent3D{Width: 4, Height: 4, Depth: 1}, 1))
	require.NoError(t, uploader.GenerateMips(tex, 1, 10, 0, 1))

	requireContents(t, device, tex, 0, 0, bytes.Repeat([]byte{200}, 16))
	requireContents(t, device, tex, 1, 0, []byte{25, 45, 105, 125})
	requireContents(t, device, tex, 2, 0, []byte{75})
	requireLayout(t, device, tex, hal.ImageLayoutShaderReadOnlyOptimal)
}

func TestGenerateMipsNonSquare(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	tex, err := uploader.CreateTexture(TextureDescriptor{
		Type:   Texture2D,
		Format: hal.FormatR8UNorm,
		Extent: hal.Extent3D{Width: 4, Height: 1},
	}, []byte{10, 20, 30, 41})
	require.NoError(t, err)
	require.Equal(t, 3, tex.MipLevels())

	require.NoError(t, uploader.GenerateAllMips(tex))
	requireContents(t, device, tex, 1, 0, []byte{15, 36})
	requireContents(t, device, tex, 2, 0, []byte{26})
}

func TestGenerateMipsRejectsBadRanges(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	tex, err := uploader.CreateTexture(TextureDescriptor{
		Type:   Texture2D,
		Format: hal.FormatR8UNorm,
		Extent: hal.Extent3D{Width: 4, Height: 4},
	}, gradient)
	require.NoError(t, err)

	testCases := map[string][4]int{
		"BaseMipPastEnd":   {3, 1, 0, 1},
		"NegativeBaseMip":  {-1, 2, 0, 1},
		"BaseLayerPastEnd": {0, 3, 1, 1},
		"NoMips":           {0, 0, 0, 1},
		"NoLayers":         {0, 3, 0, 0},
	}

	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			err := uploader.GenerateMips(tex, args[0], args[1], args[2], args[3])
			require.ErrorIs(t, err, memutils.ErrInvalidUsage)
		})
	}

	// A range that clamps to a single level has nothing to generate
	submissions := device.Stats().Submissions
	require.NoError(t, uploader.GenerateMips(tex, 2, 5, 0, 9))
	require.NoError(t, uploader.GenerateMips(tex, 0, 1, 0, 1))
	require.Equal(t, submissions, device.Stats().Submissions)
}

func TestGenerateMipsBarrierOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, uploader := mockUploader(t, ctrl)

	image := mocks.NewMockImage(ctrl)
	cmd := mocks.NewMockCommandBuffer(ctrl)
	queue := mocks.NewMockQueue(ctrl)

	tex := &Texture{
		imageDesc: hal.ImageDescriptor{
			Type:        hal.ImageType2D,
			Format:      hal.FormatR8UNorm,
			Extent:      hal.Extent3D{Width: 4, Height: 2, Depth: 1},
			MipLevels:   3,
			ArrayLayers: 1,
		},
		image:  image,
		layout: hal.ImageLayoutShaderReadOnlyOptimal,
	}

	barrier := func(srcAccess, dstAccess hal.AccessFlags, oldLayout, newLayout hal.ImageLayout, baseMip, mipCount int) hal.ImageBarrier {
		return hal.ImageBarrier{
			Image:         image,
			SrcAccessMask: srcAccess,
			DstAccessMask: dstAccess,
			OldLayout:     oldLayout,
			NewLayout:     newLayout,
			SubresourceRange: hal.ImageSubresourceRange{
				BaseMipLevel: baseMip,
				LevelCount:   mipCount,
				LayerCount:   1,
			},
		}
	}

	blit := func(srcMip int, srcExtent hal.Offset3D, dstExtent hal.Offset3D) hal.ImageBlit {
		return hal.ImageBlit{
			SrcSubresource: hal.ImageSubresourceLayers{MipLevel: srcMip, LayerCount: 1},
			SrcOffsets:     [2]hal.Offset3D{{}, srcExtent},
			DstSubresource: hal.ImageSubresourceLayers{MipLevel: srcMip + 1, LayerCount: 1},
			DstOffsets:     [2]hal.Offset3D{{}, dstExtent},
		}
	}

	const (
		shaderRead  = hal.ImageLayoutShaderReadOnlyOptimal
		transferSrc = hal.ImageLayoutTransferSrcOptimal
		transferDst = hal.ImageLayoutTransferDstOptimal
	)

	gomock.InOrder(
		device.EXPECT().AllocateCommandBuffer().Return(cmd, nil),
		cmd.EXPECT().Begin().Return(nil),
		cmd.EXPECT().PipelineBarrier(hal.PipelineStageFragmentShader, hal.PipelineStageTransfer,
			barrier(hal.AccessShaderRead, hal.AccessTransferWrite, shaderRead, transferDst, 0, 3)).Return(nil),

		cmd.EXPECT().PipelineBarrier(hal.PipelineStageTransfer, hal.PipelineStageTransfer,
			barrier(hal.AccessTransferWrite, hal.AccessTransferRead, transferDst, transferSrc, 0, 1)).Return(nil),
		cmd.EXPECT().BlitImage(image, transferSrc, image, transferDst, hal.FilterLinear,
			blit(0, hal.Offset3D{X: 4, Y: 2, Z: 1}, hal.Offset3D{X: 2, Y: 1, Z: 1})).Return(nil),
		cmd.EXPECT().PipelineBarrier(hal.PipelineStageTransfer, hal.PipelineStageFragmentShader,
			barrier(hal.AccessTransferRead, hal.AccessShaderRead, transferSrc, shaderRead, 0, 1)).Return(nil),

		cmd.EXPECT().PipelineBarrier(hal.PipelineStageTransfer, hal.PipelineStageTransfer,
			barrier(hal.AccessTransferWrite, hal.AccessTransferRead, transferDst, transferSrc, 1, 1)).Return(nil),
		cmd.EXPECT().BlitImage(image, transferSrc, image, transferDst, hal.FilterLinear,
			blit(1, hal.Offset3D{X: 2, Y: 1, Z: 1}, hal.Offset3D{X: 1, Y: 1, Z: 1})).Return(nil),
		cmd.EXPECT().PipelineBarrier(hal.PipelineStageTransfer, hal.PipelineStageFragmentShader,
			barrier(hal.AccessTransferRead, hal.AccessShaderRead, transferSrc, shaderRead, 1, 1)).Return(nil),

		cmd.EXPECT().PipelineBarrier(hal.PipelineStageTransfer, hal.PipelineStageFragmentShader,
			barrier(hal.AccessTransferWrite, hal.AccessShaderRead, transferDst, shaderRead, 2, 1)).Return(nil),
		cmd.EXPECT().End().Return(nil),
		device.EXPECT().Queue().Return(queue),
		queue.EXPECT().Submit(cmd).Return(nil),
		queue.EXPECT().WaitIdle().Return(nil),
		cmd.EXPECT().Free(),
	)

	require.NoError(t, uploader.GenerateAllMips(tex))
	require.Equal(t, shaderRead, tex.Layout())
}

package staging

import (
	"testing"

	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/stretchr/testify/require"
)

func sequence(size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestCreateBufferDropsStaging(t *testing.T) {
	device, memory, uploader := readyUploader(t, DefaultConfig())

	data := sequence(1024)
	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 1024, Usage: hal.BufferUsageVertex}, data)
	require.NoError(t, err)
	require.False(t, buffer.HasStaging())

	stats := device.Stats()
	require.Equal(t, 1, stats.LiveBuffers)
	require.Equal(t, 0, stats.HeapUsage[1])
	require.Equal(t, 1, memory.ChunkCount())
	require.Equal(t, 0, stats.LiveCommandBuffers)

	contents, err := device.BufferContents(buffer.Buffer())
	require.NoError(t, err)
	require.Equal(t, data, contents)

	require.Equal(t, hal.BufferUsageVertex|hal.BufferUsageTransferDst, buffer.Buffer().Usage())

	require.NoError(t, uploader.ReleaseBuffer(buffer))
	require.Equal(t, 0, memory.ChunkCount())
	require.Equal(t, 0, device.Stats().LiveBuffers)
	require.Equal(t, 0, device.Stats().LiveMemory)
}

func TestCreateBufferWithPartialData(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 8, Usage: hal.BufferUsageUniform}, []byte{9, 8, 7})
	require.NoError(t, err)

	contents, err := device.BufferContents(buffer.Buffer())
	require.NoError(t, err)
	require.Equal(t, []byte{9, 8, 7, 0, 0, 0, 0, 0}, contents)
}

func TestCreateBufferWithoutData(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 64, Usage: hal.BufferUsageIndex}, nil)
	require.NoError(t, err)
	require.False(t, buffer.HasStaging())

	stats := device.Stats()
	require.Equal(t, 1, stats.LiveBuffers)
	require.Equal(t, 0, stats.Submissions)
}

func TestCreateBufferRejectsBadArguments(t *testing.T) {
	config := DefaultConfig()
	config.MaxBufferSize = 1024
	device, _, uploader := readyUploader(t, config)

	_, err := uploader.CreateBuffer(BufferDescriptor{Size: 0}, nil)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	_, err = uploader.CreateBuffer(BufferDescriptor{Size: 2048}, nil)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	_, err = uploader.CreateBuffer(BufferDescriptor{Size: 4}, sequence(5))
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	require.Equal(t, 0, device.Stats().LiveBuffers)
	require.Equal(t, 0, device.Stats().LiveMemory)
}

func TestUploadToBuffer(t *testing.T) {
	device, memory, uploader := readyUploader(t, DefaultConfig())

	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 16, Usage: hal.BufferUsageStorage}, nil)
	require.NoError(t, err)

	require.NoError(t, uploader.UploadToBuffer(buffer, []byte{1, 2, 3, 4}, 4))
	require.NoError(t, uploader.UploadToBuffer(buffer, []byte{5, 6}, 14))

	contents, err := device.BufferContents(buffer.Buffer())
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 5, 6}, contents)

	// Temporary staging buffers are gone once the upload returns
	stats := device.Stats()
	require.Equal(t, 1, stats.LiveBuffers)
	require.Equal(t, 0, stats.HeapUsage[1])
	require.Equal(t, 1, memory.ChunkCount())

	submissions := stats.Submissions
	require.NoError(t, uploader.UploadToBuffer(buffer, nil, 16))
	require.Equal(t, submissions, device.Stats().Submissions)

	err = uploader.UploadToBuffer(buffer, []byte{1, 2}, 15)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	err = uploader.UploadToBuffer(buffer, []byte{1}, -1)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	require.NoError(t, uploader.ReleaseBuffer(buffer))
	err = uploader.UploadToBuffer(buffer, []byte{1}, 0)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)
}

func TestBufferLimitIsInclusive(t *testing.T) {
	config := DefaultConfig()
	config.MaxBufferSize = 32
	device, _, uploader := readyUploader(t, config)

	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 32, Usage: hal.BufferUsageVertex}, nil)
	require.NoError(t, err)

	data := sequence(32)
	require.NoError(t, uploader.UploadToBuffer(buffer, data, 0))

	contents, err := device.BufferContents(buffer.Buffer())
	require.NoError(t, err)
	require.Equal(t, data, contents)
}

func TestDynamicBufferReusesStaging(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	buffer, err := uploader.CreateBuffer(BufferDescriptor{
		Size:  8,
		Usage: hal.BufferUsageUniform,
		Flags: BufferDynamicUsage,
	}, []byte{1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	require.True(t, buffer.HasStaging())
	require.Equal(t, 2, device.Stats().LiveBuffers)

	staging := buffer.staging
	require.NoError(t, uploader.UploadToBuffer(buffer, []byte{2, 2}, 2))
	require.NoError(t, uploader.UploadToBuffer(buffer, []byte{3}, 7))
	require.Same(t, staging, buffer.staging)
	require.Equal(t, 2, device.Stats().LiveBuffers)

	contents, err := device.BufferContents(buffer.Buffer())
	require.NoError(t, err)
	require.Equal(t, []byte{1, 1, 2, 2, 1, 1, 1, 3}, contents)

	// Dynamic buffers can be written through a mapping but not read
	_, err = uploader.MapBuffer(buffer, CPUAccessReadOnly)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	mapped, err := uploader.MapBuffer(buffer, CPUAccessWriteOnly)
	require.NoError(t, err)
	mapped[0] = 7
	require.NoError(t, uploader.UnmapBuffer(buffer))

	contents, err = device.BufferContents(buffer.Buffer())
	require.NoError(t, err)
	require.Equal(t, []byte{7, 1, 2, 2, 1, 1, 1, 3}, contents)

	require.NoError(t, uploader.ReleaseBuffer(buffer))
	require.Equal(t, 0, device.Stats().LiveBuffers)
	require.Equal(t, 0, device.Stats().LiveMemory)
}

func TestMapBufferReadsDeviceContents(t *testing.T) {
	device, memory, uploader := readyUploader(t, DefaultConfig())

	data := sequence(32)
	buffer, err := uploader.CreateBuffer(BufferDescriptor{
		Size:  32,
		Usage: hal.BufferUsageStorage,
		Flags: BufferMapRead | BufferMapWrite,
	}, data)
	require.NoError(t, err)
	require.Equal(t, hal.BufferUsageStorage|hal.BufferUsageTransferDst|hal.BufferUsageTransferSrc, buffer.Buffer().Usage())
	require.Equal(t, hal.BufferUsageTransferSrc|hal.BufferUsageTransferDst, buffer.staging.buffer.Usage())

	// Clobber the staging copy so the read can only succeed by copying back from the device
	stagingBytes, err := memory.Map(buffer.staging.region)
	require.NoError(t, err)
	clear(stagingBytes)
	require.NoError(t, memory.Unmap(buffer.staging.region))

	mapped, err := uploader.MapBuffer(buffer, CPUAccessReadWrite)
	require.NoError(t, err)
	require.Equal(t, data, mapped)
	require.Len(t, mapped, 32)
	require.Equal(t, 32, cap(mapped))

	_, err = uploader.MapBuffer(buffer, CPUAccessReadOnly)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	err = uploader.UploadToBuffer(buffer, []byte{1}, 0)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	mapped[31] = 200
	require.NoError(t, uploader.UnmapBuffer(buffer))

	contents, err := device.BufferContents(buffer.Buffer())
	require.NoError(t, err)
	require.Equal(t, byte(200), contents[31])
	require.Equal(t, data[:31], contents[:31])

	err = uploader.UnmapBuffer(buffer)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)
}

func TestReadOnlyMappingDoesNotWriteBack(t *testing.T) {
	device, _, uploader := readyUploader(t, DefaultConfig())

	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 4, Usage: hal.BufferUsageStorage, Flags: BufferMapRead}, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	_, err = uploader.MapBuffer(buffer, CPUAccessWriteOnly)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	mapped, err := uploader.MapBuffer(buffer, CPUAccessReadOnly)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, mapped)
	mapped[0] = 50

	submissions := device.Stats().Submissions
	require.NoError(t, uploader.UnmapBuffer(buffer))
	require.Equal(t, submissions, device.Stats().Submissions)

	contents, err := device.BufferContents(buffer.Buffer())
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, contents)
}

func TestMapBufferRequiresStaging(t *testing.T) {
	_, _, uploader := readyUploader(t, DefaultConfig())

	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 4, Usage: hal.BufferUsageVertex}, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	_, err = uploader.MapBuffer(buffer, CPUAccessWriteOnly)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	err = uploader.UnmapBuffer(buffer)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)
}

func TestReleaseBufferIsIdempotent(t *testing.T) {
	device, memory, uploader := readyUploader(t, DefaultConfig())

	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 4, Usage: hal.BufferUsageVertex, Flags: BufferMapWrite}, nil)
	require.NoError(t, err)

	_, err = uploader.MapBuffer(buffer, CPUAccessWriteOnly)
	require.NoError(t, err)

	// Releasing a mapped buffer unmaps it
	require.NoError(t, uploader.ReleaseBuffer(buffer))
	require.NoError(t, uploader.ReleaseBuffer(buffer))
	require.NoError(t, uploader.ReleaseBuffer(nil))

	require.Nil(t, buffer.Buffer())
	require.False(t, buffer.Region().IsValid())
	require.Equal(t, 0, memory.ChunkCount())
	require.Equal(t, 0, device.Stats().LiveBuffers)
	require.Equal(t, 0, device.Stats().LiveMemory)

	_, err = uploader.MapBuffer(buffer, CPUAccessWriteOnly)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)
}

func TestCPUAccessString(t *testing.T) {
	require.Equal(t, "ReadOnly", CPUAccessReadOnly.String())
	require.Equal(t, "ReadWrite", CPUAccessReadWrite.String())
}

package staging

import (
	"sync"
	"testing"

	"github.com/liufeipengkk1/LLGL/hal"
	"github.com/stretchr/testify/require"
)

const concurrentReleases = 8

func releaseConcurrently(t *testing.T, release func() error) {
	errs := make(chan error, concurrentReleases)

	var wg sync.WaitGroup
	for i := 0; i < concurrentReleases; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- release()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestConcurrentReleaseBuffer(t *testing.T) {
	device, memory, uploader := readyUploader(t, DefaultConfig())

	buffer, err := uploader.CreateBuffer(BufferDescriptor{Size: 64, Usage: hal.BufferUsageVertex, Flags: BufferMapWrite}, sequence(64))
	require.NoError(t, err)

	releaseConcurrently(t, func() error {
		return uploader.ReleaseBuffer(buffer)
	})

	require.Nil(t, buffer.Buffer())
	require.Equal(t, 0, memory.ChunkCount())
	require.Equal(t, 0, device.Stats().LiveBuffers)
	require.Equal(t, 0, device.Stats().LiveMemory)
}

func TestConcurrentReleaseTexture(t *testing.T) {
	device, memory, uploader := readyUploader(t, DefaultConfig())

	tex, err := uploader.CreateTexture(TextureDescriptor{
		Type:   Texture2D,
		Format: hal.FormatR8UNorm,
		Extent: hal.Extent3D{Width: 4, Height: 4},
	}, sequence(16))
	require.NoError(t, err)

	releaseConcurrently(t, func() error {
		return uploader.ReleaseTexture(tex)
	})

	require.Nil(t, tex.Image())
	require.Equal(t, 0, memory.ChunkCount())
	require.Equal(t, 0, device.Stats().LiveImages)
	require.Equal(t, 0, device.Stats().LiveMemory)
}

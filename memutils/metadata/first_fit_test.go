package metadata_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/liufeipengkk1/LLGL/memutils"
	"github.com/liufeipengkk1/LLGL/memutils/metadata"
	"github.com/stretchr/testify/require"
)

type region struct {
	Offset int
	Size   int
	Free   bool
}

func regions(t *testing.T, md metadata.BlockMetadata) []region {
	var out []region
	err := md.VisitAllRegions(func(handle metadata.BlockAllocationHandle, offset int, size int, userData any, free bool) error {
		out = append(out, region{Offset: offset, Size: size, Free: free})
		return nil
	})
	require.NoError(t, err)
	return out
}

func alloc(t *testing.T, md metadata.BlockMetadata, size, alignment int) (metadata.BlockAllocationHandle, int) {
	success, req, err := md.CreateAllocationRequest(size, alignment)
	require.NoError(t, err)
	require.True(t, success)

	handle, err := md.Alloc(req, size)
	require.NoError(t, err)
	require.NoError(t, md.Validate())

	offset, err := md.AllocationOffset(handle)
	require.NoError(t, err)
	require.Equal(t, req.Item.Offset, offset)
	return handle, offset
}

func TestFirstFitBasicAlloc(t *testing.T) {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(1000)

	var stats memutils.DetailedStatistics
	stats.Clear()
	md.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			ChunkCount:  1,
			ChunkBytes:  1000,
			RegionCount: 0,
			RegionBytes: 0,
		},
		FreeRangeCount:   1,
		RegionSizeMin:    math.MaxInt,
		RegionSizeMax:    0,
		FreeRangeSizeMin: 1000,
		FreeRangeSizeMax: 1000,
	}, stats)

	handle, offset := alloc(t, md, 100, 1)
	require.Equal(t, 0, offset)

	stats.Clear()
	md.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			ChunkCount:  1,
			ChunkBytes:  1000,
			RegionCount: 1,
			RegionBytes: 100,
		},
		FreeRangeCount:   1,
		RegionSizeMin:    100,
		RegionSizeMax:    100,
		FreeRangeSizeMin: 900,
		FreeRangeSizeMax: 900,
	}, stats)

	userData, err := md.AllocationUserData(handle)
	require.NoError(t, err)
	require.Equal(t, 100, userData)

	freeSize, err := md.Free(handle)
	require.NoError(t, err)
	require.Equal(t, 1000, freeSize)
	require.True(t, md.IsEmpty())
	require.NoError(t, md.Validate())

	stats.Clear()
	md.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			ChunkCount:  1,
			ChunkBytes:  1000,
			RegionCount: 0,
			RegionBytes: 0,
		},
		FreeRangeCount:   1,
		RegionSizeMin:    math.MaxInt,
		RegionSizeMax:    0,
		FreeRangeSizeMin: 1000,
		FreeRangeSizeMax: 1000,
	}, stats)
}

func TestFirstFitAlignmentPaddingScenario(t *testing.T) {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(64)

	_, offset0 := alloc(t, md, 6, 1)
	handle1, offset1 := alloc(t, md, 7, 1)
	_, offset2 := alloc(t, md, 12, 1)
	_, offset3 := alloc(t, md, 5, 16)
	_, offset4 := alloc(t, md, 5, 1)

	require.Equal(t, 0, offset0)
	require.Equal(t, 6, offset1)
	require.Equal(t, 13, offset2)
	require.Equal(t, 32, offset3)
	// The padding left in front of the aligned allocation is reused first
	require.Equal(t, 25, offset4)

	require.Equal(t, 5, md.AllocationCount())
	require.Equal(t, []region{
		{Offset: 0, Size: 6},
		{Offset: 6, Size: 7},
		{Offset: 13, Size: 12},
		{Offset: 25, Size: 5},
		{Offset: 30, Size: 2, Free: true},
		{Offset: 32, Size: 5},
		{Offset: 37, Size: 27, Free: true},
	}, regions(t, md))

	freeSize, err := md.Free(handle1)
	require.NoError(t, err)
	require.Equal(t, 7, freeSize)
	require.NoError(t, md.Validate())

	rs := regions(t, md)
	require.Equal(t, region{Offset: 0, Size: 6}, rs[0])
	require.Equal(t, region{Offset: 6, Size: 7, Free: true}, rs[1])
	require.Equal(t, region{Offset: 13, Size: 12}, rs[2])

	_, offset5 := alloc(t, md, 3, 1)
	require.Equal(t, 6, offset5)

	rs = regions(t, md)
	require.Equal(t, region{Offset: 6, Size: 3}, rs[1])
	require.Equal(t, region{Offset: 9, Size: 4, Free: true}, rs[2])
	require.Equal(t, region{Offset: 13, Size: 12}, rs[3])
}

func TestFirstFitMergesBothNeighbours(t *testing.T) {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(30)

	handle0, _ := alloc(t, md, 10, 1)
	handle1, _ := alloc(t, md, 10, 1)
	handle2, _ := alloc(t, md, 10, 1)
	require.Equal(t, 0, md.FreeRegionsCount())
	require.Equal(t, 0, md.SumFreeSize())

	freeSize, err := md.Free(handle0)
	require.NoError(t, err)
	require.Equal(t, 10, freeSize)

	freeSize, err = md.Free(handle2)
	require.NoError(t, err)
	require.Equal(t, 10, freeSize)
	require.Equal(t, 2, md.FreeRegionsCount())

	freeSize, err = md.Free(handle1)
	require.NoError(t, err)
	require.Equal(t, 30, freeSize)
	require.Equal(t, 1, md.FreeRegionsCount())
	require.Equal(t, []region{{Offset: 0, Size: 30, Free: true}}, regions(t, md))
	require.NoError(t, md.Validate())
}

func TestFirstFitNoRoom(t *testing.T) {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(32)

	alloc(t, md, 17, 1)

	success, _, err := md.CreateAllocationRequest(16, 1)
	require.NoError(t, err)
	require.False(t, success)

	// 15 bytes remain at offset 17, but alignment pushes the start to 24
	success, _, err = md.CreateAllocationRequest(10, 8)
	require.NoError(t, err)
	require.False(t, success)

	success, req, err := md.CreateAllocationRequest(8, 8)
	require.NoError(t, err)
	require.True(t, success)
	require.Equal(t, 24, req.Item.Offset)
}

func TestFirstFitInvalidUsage(t *testing.T) {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(128)

	_, _, err := md.CreateAllocationRequest(0, 1)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	_, _, err = md.CreateAllocationRequest(4, 3)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)
	require.ErrorIs(t, err, memutils.ErrPowerOfTwo)

	handle, _ := alloc(t, md, 16, 1)

	_, err = md.Free(handle)
	require.NoError(t, err)

	_, err = md.Free(handle)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	_, err = md.Free(metadata.BlockAllocationHandle(1000))
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	_, err = md.Free(metadata.NoAllocation)
	require.ErrorIs(t, err, memutils.ErrInvalidUsage)

	require.NoError(t, md.Validate())
	require.True(t, md.IsEmpty())
}

func TestFirstFitStaleRequest(t *testing.T) {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(64)

	success, req, err := md.CreateAllocationRequest(48, 1)
	require.NoError(t, err)
	require.True(t, success)

	_, err = md.Alloc(req, nil)
	require.NoError(t, err)

	_, err = md.Alloc(req, nil)
	require.Error(t, err)
	require.NoError(t, md.Validate())
}

func TestFirstFitClear(t *testing.T) {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(256)

	alloc(t, md, 16, 1)
	alloc(t, md, 16, 64)
	alloc(t, md, 16, 1)

	md.Clear()
	require.True(t, md.IsEmpty())
	require.Equal(t, 256, md.SumFreeSize())
	require.Equal(t, []region{{Offset: 0, Size: 256, Free: true}}, regions(t, md))
	require.NoError(t, md.Validate())
}

func TestFirstFitRandomizedInvariants(t *testing.T) {
	const blockSize = 1 << 16

	md := metadata.NewFirstFitBlockMetadata()
	md.Init(blockSize)

	rng := rand.New(rand.NewSource(20240611))
	live := map[metadata.BlockAllocationHandle]int{}

	for i := 0; i < 5000; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			for handle, size := range live {
				freeSize, err := md.Free(handle)
				require.NoError(t, err)
				require.GreaterOrEqual(t, freeSize, size)
				delete(live, handle)
				break
			}
		} else {
			size := 1 + rng.Intn(700)
			alignment := 1 << rng.Intn(9)

			success, req, err := md.CreateAllocationRequest(size, alignment)
			require.NoError(t, err)
			if !success {
				continue
			}

			handle, err := md.Alloc(req, nil)
			require.NoError(t, err)

			offset, err := md.AllocationOffset(handle)
			require.NoError(t, err)
			require.Zero(t, offset%alignment)
			live[handle] = size
		}

		require.NoError(t, md.Validate())

		var lastFree bool
		var nextOffset int
		for _, r := range regions(t, md) {
			require.Equal(t, nextOffset, r.Offset)
			require.False(t, lastFree && r.Free)
			lastFree = r.Free
			nextOffset = r.Offset + r.Size
		}
		require.Equal(t, blockSize, nextOffset)
	}

	for handle := range live {
		_, err := md.Free(handle)
		require.NoError(t, err)
	}

	require.True(t, md.IsEmpty())
	require.Equal(t, 1, md.FreeRegionsCount())
	require.NoError(t, md.Validate())
}

func TestFirstFitDetailedMapHeader(t *testing.T) {
	md := metadata.NewFirstFitBlockMetadata()
	md.Init(100)
	alloc(t, md, 40, 1)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	md.PrintDetailedMapHeader(obj)
	obj.End()

	require.NoError(t, writer.Error())
	require.JSONEq(t, `{"TotalBytes":100,"FreeBytes":60,"Allocations":1,"FreeRanges":1}`, string(writer.Bytes()))
}

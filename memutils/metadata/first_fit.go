package metadata

import (
	"sort"

	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/liufeipengkk1/LLGL/memutils"
	"golang.org/x/exp/slices"
)

type firstFitBlock struct {
	offset   int
	size     int
	free     bool
	userData any
}

// FirstFitBlockMetadata is a BlockMetadata implementation that keeps every region of the chunk,
// free or used, in a single list ordered by offset. Allocation takes the first free region that
// can hold the request after alignment. Alignment padding stays in the list as a free region of
// its own. Freeing always merges with free neighbours, so the list never holds two free regions
// side by side.
//
// Handles are derived from region offsets, which are unique among the regions of one block.
type FirstFitBlockMetadata struct {
	BlockMetadataBase

	blocks      []firstFitBlock
	allocCount  int
	freeCount   int
	sumFreeSize int
}

var _ BlockMetadata = &FirstFitBlockMetadata{}

func NewFirstFitBlockMetadata() *FirstFitBlockMetadata {
	return &FirstFitBlockMetadata{}
}

func handleForOffset(offset int) BlockAllocationHandle {
	return BlockAllocationHandle(offset + 1)
}

func (m *FirstFitBlockMetadata) Init(size int) {
	m.BlockMetadataBase.Init(size)
	m.Clear()
}

func (m *FirstFitBlockMetadata) findBlock(handle BlockAllocationHandle) (int, error) {
	if handle == 0 || handle == NoAllocation {
		return -1, memutils.WithClass(cerrors.New("received an empty block handle"), memutils.ErrInvalidUsage)
	}

	offset := int(handle - 1)
	index := sort.Search(len(m.blocks), func(i int) bool {
		return m.blocks[i].offset >= offset
	})
	if index >= len(m.blocks) || m.blocks[index].offset != offset {
		return -1, memutils.WithClass(cerrors.Newf("no region of this block begins at offset %d", offset), memutils.ErrInvalidUsage)
	}

	return index, nil
}

func (m *FirstFitBlockMetadata) Validate() error {
	if m.SumFreeSize() > m.Size() {
		return cerrors.New("invalid metadata free size")
	}

	if len(m.blocks) == 0 {
		return cerrors.New("the block list is empty; it must cover the full block")
	}

	var nextOffset, calculatedFreeSize, allocCount, freeCount int
	for i, block := range m.blocks {
		if block.offset != nextOffset {
			return cerrors.Newf("region %d begins at offset %d, but the previous region ended at offset %d", i, block.offset, nextOffset)
		}

		if block.size <= 0 {
			return cerrors.Newf("region at offset %d has an invalid size of %d", block.offset, block.size)
		}

		if block.free {
			if i > 0 && m.blocks[i-1].free {
				return cerrors.Newf("free regions at offsets %d and %d were not merged", m.blocks[i-1].offset, block.offset)
			}
			if block.userData != nil {
				return cerrors.Newf("free region at offset %d still carries user data", block.offset)
			}

			freeCount++
			calculatedFreeSize += block.size
		} else {
			allocCount++
		}

		nextOffset = block.offset + block.size
	}

	if nextOffset != m.size {
		return cerrors.Newf("the full size of the metadata is %d, but the regions only added up to %d", m.size, nextOffset)
	}

	if calculatedFreeSize != m.sumFreeSize {
		return cerrors.Newf("the free size of the metadata is %d, but the free regions only added up to %d", m.sumFreeSize, calculatedFreeSize)
	}

	if allocCount != m.allocCount {
		return cerrors.Newf("the allocation count of the metadata is %d, but the used regions only added up to %d", m.allocCount, allocCount)
	}

	if freeCount != m.freeCount {
		return cerrors.Newf("the free region count of the metadata is %d, but there were only %d free regions", m.freeCount, freeCount)
	}

	return nil
}

func (m *FirstFitBlockMetadata) AllocationCount() int {
	return m.allocCount
}

func (m *FirstFitBlockMetadata) FreeRegionsCount() int {
	return m.freeCount
}

func (m *FirstFitBlockMetadata) SumFreeSize() int {
	return m.sumFreeSize
}

func (m *FirstFitBlockMetadata) IsEmpty() bool {
	return m.allocCount == 0
}

func (m *FirstFitBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.ChunkCount++
	stats.ChunkBytes += m.size

	for _, block := range m.blocks {
		if block.free {
			stats.AddFreeRange(block.size)
		} else {
			stats.AddRegion(block.size)
		}
	}
}

func (m *FirstFitBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.ChunkCount++
	stats.RegionCount += m.allocCount
	stats.ChunkBytes += m.size
	stats.RegionBytes += m.size - m.sumFreeSize
}

func (m *FirstFitBlockMetadata) PrintDetailedMapHeader(json jwriter.ObjectState) {
	m.BlockJsonData(json, m.sumFreeSize, m.allocCount, m.freeCount)
}

func (m *FirstFitBlockMetadata) CreateAllocationRequest(allocSize int, allocAlignment int) (bool, AllocationRequest, error) {
	if allocSize <= 0 {
		return false, AllocationRequest{}, memutils.WithClass(cerrors.Newf("cannot allocate a region of %d bytes", allocSize), memutils.ErrInvalidUsage)
	}

	err := memutils.CheckPow2(allocAlignment, "allocation alignment")
	if err != nil {
		return false, AllocationRequest{}, err
	}

	if allocSize > m.sumFreeSize {
		return false, AllocationRequest{}, nil
	}

	for _, block := range m.blocks {
		if !block.free || block.size < allocSize {
			continue
		}

		alignedOffset := memutils.AlignUp(block.offset, allocAlignment)
		if alignedOffset+allocSize > block.offset+block.size {
			continue
		}

		return true, AllocationRequest{
			BlockAllocationHandle: handleForOffset(block.offset),
			Size:                  allocSize,
			Item: Suballocation{
				Offset: alignedOffset,
				Size:   allocSize,
				Type:   SuballocationUsed,
			},
			Type:          AllocationRequestFirstFit,
			AlgorithmData: uint64(alignedOffset - block.offset),
		}, nil
	}

	return false, AllocationRequest{}, nil
}

func (m *FirstFitBlockMetadata) Alloc(req AllocationRequest, userData any) (BlockAllocationHandle, error) {
	if req.Type != AllocationRequestFirstFit {
		return NoAllocation, cerrors.Newf("allocation request of type %s was received by an incompatible metadata", req.Type)
	}

	index, err := m.findBlock(req.BlockAllocationHandle)
	if err != nil {
		return NoAllocation, err
	}

	block := m.blocks[index]
	padding := int(req.AlgorithmData)
	if !block.free || req.Item.Offset != block.offset+padding || padding+req.Size > block.size {
		return NoAllocation, cerrors.Newf("allocation request for %d bytes at offset %d no longer fits the region at offset %d", req.Size, req.Item.Offset, block.offset)
	}

	remainder := block.size - padding - req.Size
	allocOffset := block.offset + padding

	m.blocks[index] = firstFitBlock{
		offset:   allocOffset,
		size:     req.Size,
		userData: userData,
	}
	m.freeCount--

	if remainder > 0 {
		m.blocks = slices.Insert(m.blocks, index+1, firstFitBlock{
			offset: allocOffset + req.Size,
			size:   remainder,
			free:   true,
		})
		m.freeCount++
	}

	if padding > 0 {
		m.blocks = slices.Insert(m.blocks, index, firstFitBlock{
			offset: block.offset,
			size:   padding,
			free:   true,
		})
		m.freeCount++
	}

	m.allocCount++
	m.sumFreeSize -= req.Size

	return handleForOffset(allocOffset), nil
}

func (m *FirstFitBlockMetadata) Free(allocHandle BlockAllocationHandle) (int, error) {
	index, err := m.findBlock(allocHandle)
	if err != nil {
		return 0, err
	}

	block := &m.blocks[index]
	if block.free {
		return 0, memutils.WithClass(cerrors.Newf("region at offset %d is already free", block.offset), memutils.ErrInvalidUsage)
	}

	block.free = true
	block.userData = nil
	m.allocCount--
	m.freeCount++
	m.sumFreeSize += block.size

	if index+1 < len(m.blocks) && m.blocks[index+1].free {
		m.blocks[index].size += m.blocks[index+1].size
		m.blocks = slices.Delete(m.blocks, index+1, index+2)
		m.freeCount--
	}

	if index > 0 && m.blocks[index-1].free {
		m.blocks[index-1].size += m.blocks[index].size
		m.blocks = slices.Delete(m.blocks, index, index+1)
		m.freeCount--
		index--
	}

	return m.blocks[index].size, nil
}

func (m *FirstFitBlockMetadata) VisitAllRegions(handleBlock func(handle BlockAllocationHandle, offset int, size int, userData any, free bool) error) error {
	for _, block := range m.blocks {
		err := handleBlock(handleForOffset(block.offset), block.offset, block.size, block.userData, block.free)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *FirstFitBlockMetadata) Clear() {
	m.blocks = m.blocks[:0]
	m.allocCount = 0
	m.freeCount = 0
	m.sumFreeSize = 0

	if m.size > 0 {
		m.blocks = append(m.blocks, firstFitBlock{
			offset: 0,
			size:   m.size,
			free:   true,
		})
		m.freeCount = 1
		m.sumFreeSize = m.size
	}
}

func (m *FirstFitBlockMetadata) AllocationOffset(allocHandle BlockAllocationHandle) (int, error) {
	index, err := m.findBlock(allocHandle)
	if err != nil {
		return 0, err
	}

	return m.blocks[index].offset, nil
}

func (m *FirstFitBlockMetadata) AllocationUserData(allocHandle BlockAllocationHandle) (any, error) {
	index, err := m.findBlock(allocHandle)
	if err != nil {
		return nil, err
	}

	if m.blocks[index].free {
		return nil, cerrors.New("user data cannot be retrieved for a free region")
	}

	return m.blocks[index].userData, nil
}

func (m *FirstFitBlockMetadata) SetAllocationUserData(allocHandle BlockAllocationHandle, userData any) error {
	index, err := m.findBlock(allocHandle)
	if err != nil {
		return err
	}

	if m.blocks[index].free {
		return cerrors.New("user data cannot be set for a free region")
	}

	m.blocks[index].userData = userData
	return nil
}

package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/liufeipengkk1/LLGL/memutils"
)

// BlockMetadata tracks the suballocations carved out of a single chunk of memory. It knows nothing
// about the memory itself: offsets and sizes are all it manages. Implementations are not
// goroutine-safe; the consumer is expected to synchronize access.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. size is the size in bytes of the chunk
	// that will be managed.
	Init(size int)
	// Size retrieves the size in bytes that the block was initialized with
	Size() int

	// Validate performs internal consistency checks on the metadata. When the implementation is
	// functioning correctly it is not possible for this method to return an error.
	Validate() error
	// AllocationCount returns the number of suballocations currently live in the block
	AllocationCount() int
	// FreeRegionsCount returns the number of distinct free ranges in the block. Adjacent free ranges
	// are always merged, so no two of them touch.
	FreeRegionsCount() int
	// SumFreeSize returns the number of free bytes in the block
	SumFreeSize() int
	// IsEmpty will return true if this block has no live suballocations
	IsEmpty() bool

	// VisitAllRegions calls the provided callback once for each allocation and free region in
	// the block, in offset order.
	VisitAllRegions(handleBlock func(handle BlockAllocationHandle, offset int, size int, userData any, free bool) error) error

	// AllocationOffset returns the offset in bytes of a live suballocation
	AllocationOffset(allocHandle BlockAllocationHandle) (int, error)
	// AllocationUserData returns the userData value the suballocation was committed with
	AllocationUserData(allocHandle BlockAllocationHandle) (any, error)
	// SetAllocationUserData replaces the userData value of a live suballocation
	SetAllocationUserData(allocHandle BlockAllocationHandle, userData any) error

	// AddDetailedStatistics sums this block's statistics into the provided object
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this block's statistics into the provided object
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations
	Clear()
	// PrintDetailedMapHeader populates a json object with summary information about this block
	PrintDetailedMapHeader(json jwriter.ObjectState)

	// CreateAllocationRequest finds a place for an allocation of allocSize bytes whose offset is a
	// multiple of allocAlignment. It returns false, without an error, when the block has no room.
	// The returned request can be passed to Alloc to commit it; nothing changes until then.
	CreateAllocationRequest(allocSize int, allocAlignment int) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest and returns the handle of the new suballocation. The
	// implementation must return an error if the request is no longer valid.
	Alloc(request AllocationRequest, userData any) (BlockAllocationHandle, error)
	// Free frees a suballocation, merging it with any free neighbours, and returns the size in bytes
	// of the free region that results. Freeing an unknown or already free handle is an error.
	Free(allocHandle BlockAllocationHandle) (int, error)
}

// BlockMetadataBase provides the size bookkeeping shared by BlockMetadata implementations
type BlockMetadataBase struct {
	size int
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
func (m *BlockMetadataBase) Init(size int) {
	m.size = size
}

// Size returns the size of the block in bytes
func (m *BlockMetadataBase) Size() int { return m.size }

// BlockJsonData populates a json object with information about this block
func (m *BlockMetadataBase) BlockJsonData(json jwriter.ObjectState, freeBytes, allocationCount, freeRangeCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("FreeBytes").Int(freeBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("FreeRanges").Int(freeRangeCount)
}
